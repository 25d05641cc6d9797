// Package simconnect links the companion to the flight simulator through a
// small HTTP bridge that exposes raw SimConnect variables as JSON.
package simconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/benlarsendk/a320-checklist-companion/flight"
)

// GalToKG converts US gallons of Jet A to kilograms.
const GalToKG = 3.03

// engineRunningN1 is the N1 threshold above which an engine counts as
// running even when the bridge reports no combustion.
const engineRunningN1 = 15.0

// bridgeState is the flat variable payload served by the bridge at
// /api/state. Names mirror the underlying SimConnect variables.
type bridgeState struct {
	SimOnGround       bool    `json:"sim_on_ground"`
	AltitudeAGL       float64 `json:"plane_alt_above_ground"`
	AltitudeMSL       float64 `json:"plane_altitude"`
	VerticalSpeed     float64 `json:"vertical_speed"`
	IndicatedAirspeed float64 `json:"airspeed_indicated"`
	GroundVelocity    float64 `json:"ground_velocity"`

	GearHandle    float64 `json:"gear_handle_position"`
	FlapsPercent  float64 `json:"flaps_handle_percent"`
	SpoilersArmed bool    `json:"spoilers_armed"`
	ParkingBrake  bool    `json:"brake_parking_position"`

	Eng1Combustion bool    `json:"eng1_combustion"`
	Eng2Combustion bool    `json:"eng2_combustion"`
	Eng1N1         float64 `json:"eng1_n1"`
	Eng2N1         float64 `json:"eng2_n1"`

	LightBeacon  bool `json:"light_beacon"`
	LightNav     bool `json:"light_nav"`
	LightLanding bool `json:"light_landing"`
	LightTaxi    bool `json:"light_taxi"`
	LightStrobe  bool `json:"light_strobe"`

	TransponderState int  `json:"transponder_state"`
	AutopilotMaster  bool `json:"autopilot_master"`

	SeatbeltSign  bool `json:"cabin_seatbelts_alert_switch"`
	NoSmokingSign bool `json:"cabin_no_smoking_alert_switch"`

	APUPctRPM     float64 `json:"apu_pct_rpm"`
	APUGenSwitch  bool    `json:"apu_generator_switch"`
	MasterBattery bool    `json:"electrical_master_battery"`

	RudderTrimPct float64 `json:"rudder_trim_pct"`
	ElevatorTrim  float64 `json:"elevator_trim"`

	FuelTotalGal float64 `json:"fuel_total_quantity"`
	AltimeterMB  float64 `json:"kohlsman_setting_mb"`
}

// Client fetches aircraft state from the bridge.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a bridge client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Second},
	}
}

// FetchState polls the bridge once and returns the typed flight state.
func (c *Client) FetchState(ctx context.Context) (flight.State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/state", nil)
	if err != nil {
		return flight.State{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return flight.State{}, fmt.Errorf("poll bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return flight.State{}, fmt.Errorf("bridge returned status %d", resp.StatusCode)
	}

	var raw bridgeState
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return flight.State{}, fmt.Errorf("decode bridge state: %w", err)
	}
	return mapState(raw), nil
}
