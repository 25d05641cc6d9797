package flight

// State is the aircraft state snapshot read from the sim bridge.
// Field names follow the JSON payload pushed to clients.
type State struct {
	// Core state
	SimOnGround       bool    `json:"sim_on_ground"`
	AltitudeAGL       float64 `json:"altitude_agl"` // feet above ground
	AltitudeMSL       float64 `json:"altitude_msl"` // feet MSL
	VerticalSpeed     float64 `json:"vertical_speed"` // feet/min
	IndicatedAirspeed float64 `json:"indicated_airspeed"` // knots
	GroundVelocity    float64 `json:"ground_velocity"` // knots

	// Controls & configuration
	GearHandleDown bool    `json:"gear_handle_position"` // true = down
	FlapsPercent   float64 `json:"flaps_percent"`
	SpoilersArmed  bool    `json:"spoilers_armed"`
	ParkingBrake   bool    `json:"parking_brake"`

	// Engines
	Eng1Running bool    `json:"eng1_running"`
	Eng2Running bool    `json:"eng2_running"`
	Eng1N1      float64 `json:"eng1_n1"`
	Eng2N1      float64 `json:"eng2_n1"`

	// Lights
	LightBeacon  bool `json:"light_beacon"`
	LightNav     bool `json:"light_nav"`
	LightLanding bool `json:"light_landing"`
	LightTaxi    bool `json:"light_taxi"`
	LightStrobe  bool `json:"light_strobe"`

	// Systems
	TransponderState int  `json:"transponder_state"` // 0=off 1=stby 2=test 3=on 4=alt
	AutopilotMaster  bool `json:"autopilot_master"`

	// Cabin
	SeatbeltSign  bool `json:"seatbelt_sign"`
	NoSmokingSign bool `json:"no_smoking_sign"`

	// APU & electrical
	APUPctRPM     float64 `json:"apu_pct_rpm"`
	APUGenSwitch  bool    `json:"apu_gen_switch"`
	MasterBattery bool    `json:"master_battery"`

	// Trim
	RudderTrimPct float64 `json:"rudder_trim_pct"`
	ElevatorTrim  float64 `json:"elevator_trim"`

	// Fuel & instruments
	FuelTotalKG  float64 `json:"fuel_total_kg"`
	AltimeterHPA int     `json:"altimeter_hpa"`
}

// NewState returns a cold-and-dark default: on ground, gear down, brake set.
func NewState() State {
	return State{
		SimOnGround:    true,
		GearHandleDown: true,
		ParkingBrake:   true,
		AltimeterHPA:   1013,
	}
}

// EnginesRunning reports whether at least one engine is running.
func (s State) EnginesRunning() bool {
	return s.Eng1Running || s.Eng2Running
}

// BothEnginesRunning reports whether both engines are running.
func (s State) BothEnginesRunning() bool {
	return s.Eng1Running && s.Eng2Running
}
