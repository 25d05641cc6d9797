package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer() (*server, *httptest.Server) {
	s := &server{state: coldDark()}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/preset/", s.handlePreset)
	mux.HandleFunc("/", s.handleIndex)
	return s, httptest.NewServer(mux)
}

func getState(t *testing.T, url string) AircraftState {
	t.Helper()
	resp, err := http.Get(url + "/api/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	var state AircraftState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func TestInitialState(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	state := getState(t, ts.URL)
	if !state.SimOnGround {
		t.Error("expected aircraft on ground")
	}
	if !state.ParkingBrake {
		t.Error("expected parking brake set")
	}
	if state.Eng1Combustion || state.Eng2Combustion {
		t.Error("expected engines off")
	}
}

func TestMergeUpdate(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/state", "application/json",
		strings.NewReader(`{"light_beacon": true, "eng1_n1": 22.5}`))
	if err != nil {
		t.Fatalf("post state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	state := getState(t, ts.URL)
	if !state.LightBeacon {
		t.Error("beacon not applied")
	}
	if state.Eng1N1 != 22.5 {
		t.Errorf("eng1_n1 = %v, want 22.5", state.Eng1N1)
	}
	// Untouched fields keep their values.
	if !state.ParkingBrake {
		t.Error("parking brake lost in merge")
	}
	if state.FuelTotalGal != 5082.5 {
		t.Errorf("fuel lost in merge: %v", state.FuelTotalGal)
	}
}

func TestPresets(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/preset/cruise", "application/json", nil)
	if err != nil {
		t.Fatalf("post preset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	state := getState(t, ts.URL)
	if state.SimOnGround {
		t.Error("cruise preset should be airborne")
	}
	if state.AltitudeAGL != 35000 {
		t.Errorf("altitude = %v, want 35000", state.AltitudeAGL)
	}
	if state.GearHandle != 0 {
		t.Error("gear should be up in cruise")
	}

	resp, err = http.Post(ts.URL+"/api/preset/warp", "application/json", nil)
	if err != nil {
		t.Fatalf("post preset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown preset, got %d", resp.StatusCode)
	}
}

func TestPresetChain(t *testing.T) {
	// Every preset must build without panicking and stay internally
	// consistent with the phase it names.
	for name, build := range presets {
		state := build()
		if name == "cold_dark" && state.MasterBattery {
			t.Errorf("%s: battery should be off", name)
		}
		if (name == "climb" || name == "cruise") && state.SimOnGround {
			t.Errorf("%s: should be airborne", name)
		}
	}
}

func TestBadUpdate(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/state", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("post state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}
