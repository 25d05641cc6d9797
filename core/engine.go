// Package core runs the authoritative state engine. Every mutation of
// checklist or phase state happens on the engine goroutine; surfaces call
// the synchronous methods below, which serialize through an action channel,
// and read the snapshots published on the bus after each mutation.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benlarsendk/a320-checklist-companion/bus"
	"github.com/benlarsendk/a320-checklist-companion/checklist"
	"github.com/benlarsendk/a320-checklist-companion/flight"
	"github.com/benlarsendk/a320-checklist-companion/metrics"
	"github.com/benlarsendk/a320-checklist-companion/simbrief"
	"github.com/benlarsendk/a320-checklist-companion/simconnect"
	"github.com/benlarsendk/a320-checklist-companion/storage"
)

// heartbeatInterval paces snapshots while the sim link is down so fresh
// clients are never left waiting for telemetry that will not come.
const heartbeatInterval = time.Second

// sessionLogTimeout bounds KV writes from the engine loop.
const sessionLogTimeout = 2 * time.Second

// Publisher is the bus surface the engine needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// SessionRecorder appends entries to the session log. Optional.
type SessionRecorder interface {
	Append(ctx context.Context, kind storage.EntryKind, phase, detail string) (*storage.Entry, error)
}

// Snapshot is the full state payload pushed to clients.
type Snapshot struct {
	Connected      bool                 `json:"connected"`
	FlightState    *flight.State        `json:"flight_state"`
	ChecklistState checklist.State      `json:"checklist_state"`
	AutoTransition bool                 `json:"auto_transition"`
	FlightPlan     *simbrief.FlightPlan `json:"flight_plan"`
}

// Engine owns the checklist manager, phase detector and cached telemetry.
type Engine struct {
	mgr      *checklist.Manager
	detector *flight.Detector
	logger   *slog.Logger

	pub     Publisher
	session SessionRecorder

	autoTransition bool

	// Owned by the run goroutine.
	simConnected bool
	lastState    flight.State
	plan         *simbrief.FlightPlan

	simEvents <-chan simconnect.Event
	actions   chan func()

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Options wires the engine's collaborators.
type Options struct {
	Manager        *checklist.Manager
	Publisher      Publisher
	Session        SessionRecorder // may be nil
	SimEvents      <-chan simconnect.Event
	AutoTransition bool
	Logger         *slog.Logger
}

// NewEngine creates an engine. Start must be called before any other method.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		mgr:            opts.Manager,
		detector:       flight.NewDetector(),
		logger:         logger,
		pub:            opts.Publisher,
		session:        opts.Session,
		autoTransition: opts.AutoTransition,
		simEvents:      opts.SimEvents,
		actions:        make(chan func(), 32),
		done:           make(chan struct{}),
	}
}

// Start launches the engine goroutine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("engine already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	go e.run(runCtx)
	e.logger.Info("Core engine started", "auto_transition", e.autoTransition)
	return nil
}

// Stop terminates the engine goroutine, waiting up to timeout.
func (e *Engine) Stop(timeout time.Duration) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	select {
	case <-e.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("engine did not stop within %v", timeout)
	}
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-e.actions:
			fn()
		case ev, ok := <-e.simEvents:
			if !ok {
				e.simEvents = nil
				continue
			}
			e.handleSimEvent(ev)
		case <-heartbeat.C:
			if !e.simConnected {
				e.publish()
			}
		}
	}
}

// do runs fn on the engine goroutine and waits for it.
func (e *Engine) do(fn func()) {
	ready := make(chan struct{})
	select {
	case e.actions <- func() { fn(); close(ready) }:
	case <-e.done:
		return
	}
	select {
	case <-ready:
	case <-e.done:
	}
}

func (e *Engine) handleSimEvent(ev simconnect.Event) {
	if !ev.Connected {
		e.simConnected = false
		e.publish()
		return
	}

	e.simConnected = true
	e.lastState = *ev.State

	for name, value := range simconnect.VerifyVariables(e.lastState) {
		e.mgr.UpdateVerification(name, value)
	}

	if e.mgr.Mode() == checklist.PhaseModeAuto && e.autoTransition {
		detected := e.detector.Detect(e.lastState)
		if detected.HasChecklist() && detected != e.mgr.CurrentPhase() {
			e.mgr.SetPhase(detected, true)
			e.record(storage.KindPhaseChange, string(detected), "auto")
		}
	}

	e.publish()
}

// publish marshals and broadcasts the current snapshot. Called after every
// mutation on the engine goroutine.
func (e *Engine) publish() {
	snap := e.snapshotLocked()
	data, err := json.Marshal(snap)
	if err != nil {
		e.logger.Error("Failed to marshal snapshot", "error", err)
		return
	}
	if err := e.pub.Publish(bus.SubjectStateUpdate, data); err != nil {
		e.logger.Error("Failed to publish snapshot", "error", err)
		return
	}
	metrics.SnapshotsPublished.Inc()
}

func (e *Engine) snapshotLocked() Snapshot {
	var fs *flight.State
	if e.simConnected {
		stateCopy := e.lastState
		fs = &stateCopy
	}
	return Snapshot{
		Connected:      e.simConnected,
		FlightState:    fs,
		ChecklistState: e.mgr.Snapshot(),
		AutoTransition: e.autoTransition,
		FlightPlan:     e.plan,
	}
}

func (e *Engine) record(kind storage.EntryKind, phase, detail string) {
	if e.session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sessionLogTimeout)
	defer cancel()
	if _, err := e.session.Append(ctx, kind, phase, detail); err != nil {
		e.logger.Warn("Session log append failed", "kind", kind, "error", err)
	}
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	var snap Snapshot
	e.do(func() { snap = e.snapshotLocked() })
	return snap
}

// AllChecklists returns every checklist keyed by phase id.
func (e *Engine) AllChecklists() map[string]*checklist.Checklist {
	var out map[string]*checklist.Checklist
	e.do(func() { out = e.mgr.AllChecklists() })
	return out
}

// ToggleItem flips an item's checked state. Returns false for unknown ids.
func (e *Engine) ToggleItem(phase, itemID string) bool {
	var ok bool
	e.do(func() {
		ok = e.mgr.ToggleItem(phase, itemID)
		if ok {
			e.noteCompletion(phase)
			e.publish()
		}
	})
	return ok
}

// CheckItem marks an item checked. Returns false for unknown ids.
func (e *Engine) CheckItem(phase, itemID string) bool {
	var ok bool
	e.do(func() {
		ok = e.mgr.CheckItem(phase, itemID)
		if ok {
			e.noteCompletion(phase)
			e.publish()
		}
	})
	return ok
}

// UncheckItem marks an item unchecked. Returns false for unknown ids.
func (e *Engine) UncheckItem(phase, itemID string) bool {
	var ok bool
	e.do(func() {
		ok = e.mgr.UncheckItem(phase, itemID)
		if ok {
			e.publish()
		}
	})
	return ok
}

func (e *Engine) noteCompletion(phase string) {
	cl := e.mgr.Checklist(phase)
	if cl != nil && cl.IsComplete() {
		e.record(storage.KindChecklistComplete, phase, "")
	}
}

// SetPhase switches to a phase chosen by the user. The detector is resynced
// to the choice; when the detector now agrees, the mode returns to auto,
// otherwise it goes manual.
func (e *Engine) SetPhase(p flight.Phase) {
	e.do(func() {
		e.mgr.SetPhase(p, true)
		e.detector.SyncToPhase(p)
		if e.detector.Detect(e.lastState) == p {
			e.mgr.SetMode(checklist.PhaseModeAuto)
		} else {
			e.mgr.SetMode(checklist.PhaseModeManual)
		}
		e.record(storage.KindPhaseChange, string(p), "manual")
		e.publish()
	})
}

// NextPhase advances to the next checklist phase. The detector is resynced;
// if it agrees with the new phase the mode returns to auto.
func (e *Engine) NextPhase() bool {
	var ok bool
	e.do(func() {
		ok = e.mgr.NextPhase()
		if !ok {
			return
		}
		e.resyncDetector()
		e.record(storage.KindPhaseChange, string(e.mgr.CurrentPhase()), "next")
		e.publish()
	})
	return ok
}

// PrevPhase steps back to the previous checklist phase, with the same
// detector resync as NextPhase.
func (e *Engine) PrevPhase() bool {
	var ok bool
	e.do(func() {
		ok = e.mgr.PrevPhase()
		if !ok {
			return
		}
		e.resyncDetector()
		e.record(storage.KindPhaseChange, string(e.mgr.CurrentPhase()), "prev")
		e.publish()
	})
	return ok
}

func (e *Engine) resyncDetector() {
	current := e.mgr.CurrentPhase()
	e.detector.SyncToPhase(current)
	if e.detector.Detect(e.lastState) == current {
		e.mgr.SetMode(checklist.PhaseModeAuto)
	}
}

// SetMode switches between auto and manual phase detection.
func (e *Engine) SetMode(mode checklist.PhaseMode) {
	e.do(func() {
		e.mgr.SetMode(mode)
		e.publish()
	})
}

// Reset clears all checklists and the detector state.
func (e *Engine) Reset() {
	e.do(func() {
		e.mgr.ResetAll()
		e.detector.Reset()
		e.record(storage.KindReset, "", "")
		e.publish()
	})
}

// SetPlan stores a fetched flight plan and injects its values into the
// checklists.
func (e *Engine) SetPlan(plan *simbrief.FlightPlan) {
	e.do(func() {
		e.plan = plan
		e.mgr.InjectPlan(checklist.PlanValues{
			FuelBlock:   plan.FuelBlock,
			FuelUnits:   plan.FuelUnits,
			OriginQNH:   plan.OriginQNH,
			DestQNH:     plan.DestQNH,
			TrimPercent: plan.TrimPercent,
		})
		e.record(storage.KindPlanLoaded, "", plan.Origin+"-"+plan.Destination)
		e.publish()
	})
}

// ClearPlan drops the flight plan and restores response templates.
func (e *Engine) ClearPlan() {
	e.do(func() {
		e.plan = nil
		e.mgr.ClearPlan()
		e.publish()
	})
}

// SetTrainingMode switches checklist documents.
func (e *Engine) SetTrainingMode(enabled bool) error {
	var err error
	e.do(func() {
		err = e.mgr.SetTrainingMode(enabled)
		if err == nil {
			e.publish()
		}
	})
	return err
}

// ReloadDocuments re-reads the active checklist document from disk. Plan
// values are re-injected afterwards. Used by the file watcher.
func (e *Engine) ReloadDocuments() error {
	var err error
	e.do(func() {
		err = e.mgr.Reload()
		if err != nil {
			return
		}
		if e.plan != nil {
			e.mgr.InjectPlan(checklist.PlanValues{
				FuelBlock:   e.plan.FuelBlock,
				FuelUnits:   e.plan.FuelUnits,
				OriginQNH:   e.plan.OriginQNH,
				DestQNH:     e.plan.DestQNH,
				TrimPercent: e.plan.TrimPercent,
			})
		}
		e.logger.Info("Checklist documents reloaded")
		e.publish()
	})
	return err
}
