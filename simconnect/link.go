package simconnect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benlarsendk/a320-checklist-companion/flight"
	"github.com/benlarsendk/a320-checklist-companion/metrics"
)

const (
	// DefaultPollInterval is the telemetry poll rate (10 Hz).
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultRetryInterval is how often a downed link retries the bridge.
	DefaultRetryInterval = 5 * time.Second
)

// Event is one link observation delivered to the core engine. State is nil
// when the event signals a disconnect.
type Event struct {
	Connected bool
	State     *flight.State
}

// Link polls the sim bridge and streams typed state events. One goroutine,
// started with Start and stopped with Stop.
type Link struct {
	client        *Client
	pollInterval  time.Duration
	retryInterval time.Duration
	logger        *slog.Logger

	events chan Event

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewLink creates a sim link against the given bridge URL. Zero intervals
// fall back to the defaults.
func NewLink(bridgeURL string, pollInterval, retryInterval time.Duration, logger *slog.Logger) *Link {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		client:        NewClient(bridgeURL),
		pollInterval:  pollInterval,
		retryInterval: retryInterval,
		logger:        logger,
		events:        make(chan Event, 16),
	}
}

// Events returns the event stream consumed by the core engine.
func (l *Link) Events() <-chan Event { return l.events }

// Start launches the poll loop.
func (l *Link) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return fmt.Errorf("sim link already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true

	l.wg.Add(1)
	go l.run(runCtx)

	l.logger.Info("Sim link started",
		"poll_interval", l.pollInterval,
		"retry_interval", l.retryInterval)
	return nil
}

// Stop terminates the poll loop, waiting up to timeout.
func (l *Link) Stop(timeout time.Duration) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	cancel := l.cancel
	l.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("sim link did not stop within %v", timeout)
	}
}

func (l *Link) run(ctx context.Context) {
	defer l.wg.Done()

	connected := false
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		state, err := l.client.FetchState(ctx)
		if err != nil {
			metrics.PollErrors.Inc()
			if connected {
				connected = false
				metrics.SimConnected.Set(0)
				l.logger.Warn("Sim bridge connection lost", "error", err)
				l.emit(ctx, Event{Connected: false})
			}
			timer.Reset(l.retryInterval)
			continue
		}

		if !connected {
			connected = true
			metrics.SimConnected.Set(1)
			l.logger.Info("Sim bridge connected")
		}
		l.emit(ctx, Event{Connected: true, State: &state})
		timer.Reset(l.pollInterval)
	}
}

func (l *Link) emit(ctx context.Context, ev Event) {
	select {
	case l.events <- ev:
	case <-ctx.Done():
	}
}
