// Package main implements a mock SimConnect HTTP bridge for development and
// testing. It serves the same flat variable payload as the real bridge and
// lets tests and developers mutate the aircraft state through simple POSTs,
// so the companion can be exercised without a running simulator.
//
// Usage:
//
//	simmock -port 8070
//
// GET  /api/state          returns the current aircraft state
// POST /api/state          merges a partial state update
// POST /api/preset/{name}  loads a named scenario (cold_dark, taxi, cruise...)
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// AircraftState mirrors the variable payload of the real bridge. Field names
// follow the underlying SimConnect variables.
type AircraftState struct {
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

// coldDark is a parked aircraft with everything off.
func coldDark() AircraftState {
	return AircraftState{
		SimOnGround:  true,
		ParkingBrake: true,
		GearHandle:   1,
		FuelTotalGal: 5082.5,
		AltimeterMB:  1013.2,
	}
}

// presets are named scenarios keyed by the companion's flight phases.
// Assigned in init because the closures refer to the map itself.
var presets map[string]func() AircraftState

func init() {
	presets = map[string]func() AircraftState{
		"cold_dark": coldDark,
		"before_start": func() AircraftState {
			s := coldDark()
			s.MasterBattery = true
			s.APUPctRPM = 100
			s.APUGenSwitch = true
			s.LightNav = true
			s.LightBeacon = true
			s.SeatbeltSign = true
			s.NoSmokingSign = true
			return s
		},
		"after_start": func() AircraftState {
			s := presets["before_start"]()
			s.Eng1Combustion = true
			s.Eng2Combustion = true
			s.Eng1N1 = 20
			s.Eng2N1 = 20
			s.APUPctRPM = 0
			s.APUGenSwitch = false
			return s
		},
		"taxi": func() AircraftState {
			s := presets["after_start"]()
			s.ParkingBrake = false
			s.GroundVelocity = 15
			s.LightTaxi = true
			s.FlapsPercent = 25
			return s
		},
		"takeoff": func() AircraftState {
			s := presets["taxi"]()
			s.GroundVelocity = 140
			s.IndicatedAirspeed = 145
			s.Eng1N1 = 92
			s.Eng2N1 = 92
			s.LightLanding = true
			s.LightStrobe = true
			s.TransponderState = 4
			return s
		},
		"climb": func() AircraftState {
			s := presets["takeoff"]()
			s.SimOnGround = false
			s.AltitudeAGL = 5000
			s.AltitudeMSL = 5500
			s.VerticalSpeed = 2200
			s.IndicatedAirspeed = 250
			s.GroundVelocity = 260
			s.GearHandle = 0
			s.FlapsPercent = 0
			s.LightTaxi = false
			s.LightLanding = false
			s.AutopilotMaster = true
			return s
		},
		"cruise": func() AircraftState {
			s := presets["climb"]()
			s.AltitudeAGL = 35000
			s.AltitudeMSL = 36000
			s.VerticalSpeed = 0
			s.IndicatedAirspeed = 280
			s.GroundVelocity = 450
			s.SeatbeltSign = false
			return s
		},
		"approach": func() AircraftState {
			s := presets["cruise"]()
			s.AltitudeAGL = 2500
			s.AltitudeMSL = 3000
			s.VerticalSpeed = -800
			s.IndicatedAirspeed = 180
			s.GroundVelocity = 190
			s.GearHandle = 1
			s.FlapsPercent = 50
			s.SpoilersArmed = true
			s.SeatbeltSign = true
			s.LightLanding = true
			return s
		},
		"landed": func() AircraftState {
			s := presets["approach"]()
			s.SimOnGround = true
			s.AltitudeAGL = 0
			s.VerticalSpeed = 0
			s.IndicatedAirspeed = 25
			s.GroundVelocity = 20
			s.SpoilersArmed = false
			s.LightStrobe = false
			return s
		},
	}
}

type server struct {
	mu    sync.RWMutex
	state AircraftState
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.RLock()
		state := s.state
		s.mu.RUnlock()
		writeJSON(w, state)

	case http.MethodPost:
		s.mu.Lock()
		// Decoding over the current state applies a merge: absent fields
		// keep their values.
		if err := json.NewDecoder(r.Body).Decode(&s.state); err != nil {
			s.mu.Unlock()
			http.Error(w, fmt.Sprintf("invalid state update: %v", err), http.StatusBadRequest)
			return
		}
		state := s.state
		s.mu.Unlock()
		log.Printf("state updated")
		writeJSON(w, state)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) handlePreset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/preset/")
	build, ok := presets[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown preset %q, available: %s", name, strings.Join(presetNames(), ", ")), http.StatusNotFound)
		return
	}

	s.mu.Lock()
	s.state = build()
	state := s.state
	s.mu.Unlock()

	log.Printf("preset loaded: %s", name)
	writeJSON(w, state)
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!doctype html><title>simmock</title><h1>simmock</h1><p>Presets:</p><ul>")
	for _, name := range presetNames() {
		fmt.Fprintf(w, `<li><form method="post" action="/api/preset/%s"><button>%s</button></form></li>`, name, name)
	}
	fmt.Fprint(w, `</ul><p><a href="/api/state">current state</a></p>`)
}

func presetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func main() {
	port := flag.Int("port", 8070, "HTTP listen port")
	preset := flag.String("preset", "cold_dark", "Initial preset")
	flag.Parse()

	build, ok := presets[*preset]
	if !ok {
		log.Fatalf("unknown preset %q, available: %s", *preset, strings.Join(presetNames(), ", "))
	}

	s := &server{state: build()}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/preset/", s.handlePreset)
	mux.HandleFunc("/", s.handleIndex)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("simmock listening on %s (preset %s)", addr, *preset)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
