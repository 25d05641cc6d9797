package simconnect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benlarsendk/a320-checklist-companion/flight"
)

const bridgePayload = `{
	"sim_on_ground": true,
	"plane_alt_above_ground": 12.5,
	"plane_altitude": 17.0,
	"ground_velocity": 3.2,
	"gear_handle_position": 1,
	"flaps_handle_percent": 0,
	"brake_parking_position": true,
	"eng1_combustion": false,
	"eng2_combustion": false,
	"eng1_n1": 22.0,
	"eng2_n1": 0,
	"light_beacon": true,
	"transponder_state": 1,
	"apu_pct_rpm": 100,
	"electrical_master_battery": true,
	"fuel_total_quantity": 5082.5,
	"kohlsman_setting_mb": 1013.2
}`

func TestFetchState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/state", r.URL.Path)
		w.Write([]byte(bridgePayload))
	}))
	defer srv.Close()

	s, err := NewClient(srv.URL).FetchState(context.Background())
	require.NoError(t, err)

	assert.True(t, s.SimOnGround)
	assert.True(t, s.GearHandleDown)
	assert.True(t, s.ParkingBrake)
	assert.True(t, s.LightBeacon)
	assert.True(t, s.MasterBattery)

	// N1 above 15% counts as running even without combustion.
	assert.True(t, s.Eng1Running)
	assert.False(t, s.Eng2Running)

	// 5082.5 gal * 3.03 = 15400 kg.
	assert.Equal(t, 15400.0, s.FuelTotalKG)
	assert.Equal(t, 1013, s.AltimeterHPA)
}

func TestFetchState_BridgeDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL).FetchState(context.Background())
	assert.Error(t, err)
}

func TestFetchState_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchState(context.Background())
	assert.ErrorContains(t, err, "status 500")
}

func TestVerifyVariables(t *testing.T) {
	s := flight.State{
		ParkingBrake:     true,
		LightBeacon:      true,
		FlapsPercent:     25,
		TransponderState: 4,
		APUPctRPM:        100,
	}

	vars := VerifyVariables(s)
	assert.Equal(t, 1.0, vars["BRAKE_PARKING_POSITION"])
	assert.Equal(t, 1.0, vars["LIGHT_BEACON"])
	assert.Equal(t, 0.0, vars["LIGHT_STROBE"])
	assert.Equal(t, 25.0, vars["FLAPS_HANDLE_PERCENT"])
	assert.Equal(t, 4.0, vars["TRANSPONDER_STATE"])
	assert.Equal(t, 100.0, vars["APU_PCT_RPM"])
	assert.Equal(t, 0.0, vars["ELECTRICAL_MASTER_BATTERY"])
}

func TestLink_EmitsStateAndDisconnect(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(bridgePayload))
	}))
	defer srv.Close()

	link := NewLink(srv.URL, 10*time.Millisecond, 10*time.Millisecond, nil)
	require.NoError(t, link.Start(context.Background()))
	defer link.Stop(time.Second)

	ev := <-link.Events()
	require.True(t, ev.Connected)
	require.NotNil(t, ev.State)
	assert.Equal(t, 15400.0, ev.State.FuelTotalKG)

	healthy.Store(false)
	// Drain until the disconnect event arrives.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-link.Events():
			if !ev.Connected {
				assert.Nil(t, ev.State)
				return
			}
		case <-deadline:
			t.Fatal("no disconnect event")
		}
	}
}
