// Package simbrief fetches and parses SimBrief operational flight plans.
package simbrief

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultAPIURL is the public SimBrief OFP endpoint.
const DefaultAPIURL = "https://www.simbrief.com/api/xml.fetcher.php"

const fetchTimeout = 30 * time.Second

// ErrUsernameRequired is returned when no username is configured.
var ErrUsernameRequired = errors.New("simbrief username is required")

// UserNotFoundError indicates the username is unknown or has no plan filed.
type UserNotFoundError struct {
	Message string
}

func (e *UserNotFoundError) Error() string { return e.Message }

// NetworkError wraps transport-level failures so callers can map them to a
// retryable status.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("simbrief network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// APIError covers any other failure reported by the SimBrief API.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

// FlightPlan is the parsed OFP subset the companion uses.
type FlightPlan struct {
	// Route
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Alternate    string `json:"alternate"`
	Route        string `json:"route"`
	FlightNumber string `json:"flight_number"`

	// Fuel
	FuelBlock   int    `json:"fuel_block"`
	FuelTakeoff int    `json:"fuel_takeoff"`
	FuelLanding int    `json:"fuel_landing"`
	FuelUnits   string `json:"fuel_units"`

	// Weights
	Payload     int    `json:"payload"`
	ZFW         int    `json:"zfw"`
	TOW         int    `json:"tow"`
	LDW         int    `json:"ldw"`
	WeightUnits string `json:"weight_units"`

	// Performance
	CruiseAltitude string `json:"cruise_altitude"`
	CostIndex      int    `json:"cost_index"`

	// Weather
	OriginMETAR string `json:"origin_metar"`
	DestMETAR   string `json:"dest_metar"`
	OriginQNH   int    `json:"origin_qnh"`
	DestQNH     int    `json:"dest_qnh"`

	// Trim
	TrimPercent float64 `json:"trim_percent"`
}

// Client fetches flight plans and caches the most recent one.
type Client struct {
	apiURL string
	http   *http.Client
	logger *slog.Logger

	mu   sync.RWMutex
	plan *FlightPlan
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL overrides the SimBrief endpoint, used by tests and the mock
// environment.
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a SimBrief client.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		apiURL: DefaultAPIURL,
		http:   &http.Client{Timeout: fetchTimeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Plan returns the cached flight plan, or nil.
func (c *Client) Plan() *FlightPlan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.plan
}

// Clear drops the cached flight plan.
func (c *Client) Clear() {
	c.mu.Lock()
	c.plan = nil
	c.mu.Unlock()
}

// FetchFlightPlan retrieves the latest OFP for a username, caches and
// returns it.
func (c *Client) FetchFlightPlan(ctx context.Context, username string) (*FlightPlan, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}

	q := url.Values{}
	q.Set("username", username)
	q.Set("json", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	var raw ofpResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		// SimBrief reports some errors as non-JSON bodies with a 400.
		if resp.StatusCode != http.StatusOK {
			return nil, &NetworkError{Err: fmt.Errorf("http status %d", resp.StatusCode)}
		}
		return nil, &APIError{Message: fmt.Sprintf("failed to parse flight plan: %v", err)}
	}

	if raw.Fetch.Status == "Error" {
		msg := raw.Fetch.Message
		if msg == "" {
			msg = "unknown SimBrief error"
		}
		if isUserNotFound(msg) {
			return nil, &UserNotFoundError{Message: msg}
		}
		return nil, &APIError{Message: msg}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}

	plan := parseOFP(&raw)

	c.mu.Lock()
	c.plan = plan
	c.mu.Unlock()

	c.logger.Info("Flight plan fetched",
		"origin", plan.Origin,
		"destination", plan.Destination,
		"fuel_block", plan.FuelBlock)
	return plan, nil
}

func isUserNotFound(msg string) bool {
	return containsFold(msg, "user not found") || containsFold(msg, "no flight plan")
}
