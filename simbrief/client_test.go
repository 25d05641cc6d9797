package simbrief

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOFP = `{
	"fetch": {"status": "Success", "message": ""},
	"origin": {"icao_code": "EKCH"},
	"destination": {"icao_code": "EGLL"},
	"alternate": {"icao_code": "EGKK"},
	"general": {
		"route": "MOSIS M852 RIMET",
		"flight_number": "1234",
		"initial_altitude": "36000",
		"costindex": "25",
		"stepclimb_string": "27.5/FL360"
	},
	"fuel": {"plan_ramp": "15400", "plan_takeoff": "15100", "plan_landing": "4200"},
	"weights": {
		"payload": "14500",
		"est_zfw": "57000",
		"est_tow": "72100",
		"est_ldw": "61200",
		"est_trim": "27.5"
	},
	"params": {"units": "kgs"},
	"weather": {
		"orig_metar": "EKCH 121250Z 24012KT 9999 FEW030 12/07 Q1013",
		"dest_metar": "EGLL 121250Z 25010KT 9999 SCT028 13/08 A2992"
	}
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(nil, WithAPIURL(srv.URL))
}

func TestFetchFlightPlan(t *testing.T) {
	var gotQuery string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(sampleOFP))
	})

	plan, err := c.FetchFlightPlan(context.Background(), "pilot123")
	require.NoError(t, err)

	assert.Equal(t, "json=1&username=pilot123", gotQuery)

	assert.Equal(t, "EKCH", plan.Origin)
	assert.Equal(t, "EGLL", plan.Destination)
	assert.Equal(t, "EGKK", plan.Alternate)
	assert.Equal(t, "MOSIS M852 RIMET", plan.Route)

	assert.Equal(t, 15400, plan.FuelBlock)
	assert.Equal(t, "KG", plan.FuelUnits)
	assert.Equal(t, 72100, plan.TOW)
	assert.Equal(t, "KG", plan.WeightUnits)

	assert.Equal(t, "36000", plan.CruiseAltitude)
	assert.Equal(t, 25, plan.CostIndex)

	assert.Equal(t, 1013, plan.OriginQNH)
	assert.Equal(t, 1013, plan.DestQNH) // A2992 converts to 1013 hPa
	assert.Equal(t, 27.5, plan.TrimPercent)

	// Fetch result is cached.
	assert.Same(t, plan, c.Plan())
}

func TestFetchFlightPlan_EmptyUsername(t *testing.T) {
	c := NewClient(nil)
	_, err := c.FetchFlightPlan(context.Background(), "")
	assert.ErrorIs(t, err, ErrUsernameRequired)
}

func TestFetchFlightPlan_UserNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fetch": {"status": "Error", "message": "Unknown UserID - user not found"}}`))
	})

	_, err := c.FetchFlightPlan(context.Background(), "nobody")
	var unfErr *UserNotFoundError
	require.ErrorAs(t, err, &unfErr)
	assert.Contains(t, unfErr.Message, "user not found")
	assert.Nil(t, c.Plan())
}

func TestFetchFlightPlan_APIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fetch": {"status": "Error", "message": "rate limit exceeded"}}`))
	})

	_, err := c.FetchFlightPlan(context.Background(), "pilot123")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "rate limit exceeded", apiErr.Message)
}

func TestFetchFlightPlan_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := NewClient(nil, WithAPIURL(srv.URL))
	_, err := c.FetchFlightPlan(context.Background(), "pilot123")
	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestClear(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleOFP))
	})

	_, err := c.FetchFlightPlan(context.Background(), "pilot123")
	require.NoError(t, err)
	require.NotNil(t, c.Plan())

	c.Clear()
	assert.Nil(t, c.Plan())
}
