package simconnect

import (
	"math"

	"github.com/benlarsendk/a320-checklist-companion/flight"
)

// mapState converts raw bridge variables into the typed flight state.
// Fuel arrives in US gallons and is converted to kilograms; the altimeter
// setting is rounded to a whole hPa.
func mapState(raw bridgeState) flight.State {
	return flight.State{
		SimOnGround:       raw.SimOnGround,
		AltitudeAGL:       raw.AltitudeAGL,
		AltitudeMSL:       raw.AltitudeMSL,
		VerticalSpeed:     raw.VerticalSpeed,
		IndicatedAirspeed: raw.IndicatedAirspeed,
		GroundVelocity:    raw.GroundVelocity,

		GearHandleDown: raw.GearHandle > 0.5,
		FlapsPercent:   raw.FlapsPercent,
		SpoilersArmed:  raw.SpoilersArmed,
		ParkingBrake:   raw.ParkingBrake,

		Eng1Running: engineRunning(raw.Eng1Combustion, raw.Eng1N1),
		Eng2Running: engineRunning(raw.Eng2Combustion, raw.Eng2N1),
		Eng1N1:      raw.Eng1N1,
		Eng2N1:      raw.Eng2N1,

		LightBeacon:  raw.LightBeacon,
		LightNav:     raw.LightNav,
		LightLanding: raw.LightLanding,
		LightTaxi:    raw.LightTaxi,
		LightStrobe:  raw.LightStrobe,

		TransponderState: raw.TransponderState,
		AutopilotMaster:  raw.AutopilotMaster,

		SeatbeltSign:  raw.SeatbeltSign,
		NoSmokingSign: raw.NoSmokingSign,

		APUPctRPM:     raw.APUPctRPM,
		APUGenSwitch:  raw.APUGenSwitch,
		MasterBattery: raw.MasterBattery,

		RudderTrimPct: raw.RudderTrimPct,
		ElevatorTrim:  raw.ElevatorTrim,

		FuelTotalKG:  math.Round(raw.FuelTotalGal * GalToKG),
		AltimeterHPA: int(math.Round(raw.AltimeterMB)),
	}
}

func engineRunning(combustion bool, n1 float64) bool {
	return combustion || n1 > engineRunningN1
}

// VerifyVariables exposes the named variables checklist items verify
// against, as floats (booleans map to 0/1).
func VerifyVariables(s flight.State) map[string]float64 {
	return map[string]float64{
		"BRAKE_PARKING_POSITION":        boolVar(s.ParkingBrake),
		"LIGHT_BEACON":                  boolVar(s.LightBeacon),
		"LIGHT_NAV":                     boolVar(s.LightNav),
		"LIGHT_LANDING":                 boolVar(s.LightLanding),
		"LIGHT_TAXI":                    boolVar(s.LightTaxi),
		"LIGHT_STROBE":                  boolVar(s.LightStrobe),
		"GEAR_HANDLE_POSITION":          boolVar(s.GearHandleDown),
		"FLAPS_HANDLE_PERCENT":          s.FlapsPercent,
		"SPOILERS_ARMED":                boolVar(s.SpoilersArmed),
		"TRANSPONDER_STATE":             float64(s.TransponderState),
		"AUTOPILOT_MASTER":              boolVar(s.AutopilotMaster),
		"CABIN_SEATBELTS_ALERT_SWITCH":  boolVar(s.SeatbeltSign),
		"CABIN_NO_SMOKING_ALERT_SWITCH": boolVar(s.NoSmokingSign),
		"APU_PCT_RPM":                   s.APUPctRPM,
		"APU_GENERATOR_SWITCH":          boolVar(s.APUGenSwitch),
		"ELECTRICAL_MASTER_BATTERY":     boolVar(s.MasterBattery),
	}
}

func boolVar(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
