package checklist

import (
	"fmt"
	"log/slog"

	"github.com/benlarsendk/a320-checklist-companion/flight"
)

// PhaseMode selects how the active phase advances.
type PhaseMode string

const (
	PhaseModeAuto   PhaseMode = "auto"
	PhaseModeManual PhaseMode = "manual"
)

// State is the checklist portion of a state snapshot.
type State struct {
	Phase        flight.Phase `json:"phase"`
	PhaseDisplay string       `json:"phase_display"`
	PhaseMode    PhaseMode    `json:"phase_mode"`
	Checklist    *Checklist   `json:"checklist"`
	PhaseHistory []string     `json:"phase_history"`
}

// Manager owns every checklist and the active phase. It is not safe for
// concurrent use: all calls must come from the core engine goroutine.
type Manager struct {
	checklists   map[string]*Checklist
	currentPhase flight.Phase
	phaseMode    PhaseMode
	phaseHistory []string
	trainingMode bool

	normalPath   string
	trainingPath string
	logger       *slog.Logger
}

// NewManager loads the checklist document for the given mode.
func NewManager(normalPath, trainingPath string, trainingMode bool, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		currentPhase: flight.PhaseCockpitPreparation,
		phaseMode:    PhaseModeAuto,
		phaseHistory: []string{},
		trainingMode: trainingMode,
		normalPath:   normalPath,
		trainingPath: trainingPath,
		logger:       logger,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	path := m.normalPath
	if m.trainingMode {
		path = m.trainingPath
	}

	doc, err := LoadDocument(path)
	if err != nil {
		return fmt.Errorf("load checklists: %w", err)
	}

	m.checklists = make(map[string]*Checklist)
	for _, group := range documentGroups {
		for i := range doc.Phases[group] {
			cl := doc.Phases[group][i]
			for _, it := range cl.Items {
				it.ResponseTemplate = it.Response
			}
			m.checklists[cl.ID] = &cl
		}
	}

	mode := "normal"
	if m.trainingMode {
		mode = "training"
	}
	m.logger.Info("Loaded checklists", "count", len(m.checklists), "mode", mode)
	return nil
}

// Reload re-reads the active document from disk, preserving nothing: the
// phase and all item state reset. Used by the file watcher.
func (m *Manager) Reload() error {
	if err := m.load(); err != nil {
		return err
	}
	m.currentPhase = flight.PhaseCockpitPreparation
	m.phaseMode = PhaseModeAuto
	m.phaseHistory = []string{}
	return nil
}

// TrainingMode reports the active document variant.
func (m *Manager) TrainingMode() bool { return m.trainingMode }

// SetTrainingMode switches between the training and normal documents.
// A no-op when the mode is unchanged.
func (m *Manager) SetTrainingMode(enabled bool) error {
	if m.trainingMode == enabled {
		return nil
	}
	m.trainingMode = enabled
	if err := m.Reload(); err != nil {
		return err
	}
	m.logger.Info("Switched checklist document", "training", enabled)
	return nil
}

// CurrentPhase returns the active phase.
func (m *Manager) CurrentPhase() flight.Phase { return m.currentPhase }

// Mode returns the phase mode.
func (m *Manager) Mode() PhaseMode { return m.phaseMode }

// SetMode sets the phase mode.
func (m *Manager) SetMode(mode PhaseMode) { m.phaseMode = mode }

// CurrentChecklist returns the checklist for the active phase, or nil when
// the phase carries none.
func (m *Manager) CurrentChecklist() *Checklist {
	return m.checklists[string(m.currentPhase)]
}

// Checklist returns the checklist for a phase id, or nil.
func (m *Manager) Checklist(phaseID string) *Checklist {
	return m.checklists[phaseID]
}

// SetPhase switches the active phase, optionally recording the previous one
// in the history. Duplicate history entries are suppressed.
func (m *Manager) SetPhase(p flight.Phase, recordHistory bool) {
	if m.currentPhase == p {
		return
	}
	if recordHistory && !contains(m.phaseHistory, string(m.currentPhase)) {
		m.phaseHistory = append(m.phaseHistory, string(m.currentPhase))
	}
	m.currentPhase = p
	m.logger.Info("Phase changed", "phase", p)
}

// NextPhase advances to the next checklist phase and switches to manual
// mode. Returns false at the end of the list.
func (m *Manager) NextPhase() bool {
	next := flight.NextChecklistPhase(m.currentPhase)
	if next == "" {
		return false
	}
	m.SetPhase(next, true)
	m.phaseMode = PhaseModeManual
	return true
}

// PrevPhase steps back to the previous checklist phase without recording
// history, and switches to manual mode.
func (m *Manager) PrevPhase() bool {
	prev := flight.PrevChecklistPhase(m.currentPhase)
	if prev == "" {
		return false
	}
	m.SetPhase(prev, false)
	m.phaseMode = PhaseModeManual
	return true
}

// CheckItem marks an item checked. Returns false for unknown ids.
func (m *Manager) CheckItem(phaseID, itemID string) bool {
	return m.setChecked(phaseID, itemID, func(it *Item) { it.Checked = true })
}

// UncheckItem marks an item unchecked. Returns false for unknown ids.
func (m *Manager) UncheckItem(phaseID, itemID string) bool {
	return m.setChecked(phaseID, itemID, func(it *Item) { it.Checked = false })
}

// ToggleItem flips an item's checked state. Returns false for unknown ids.
func (m *Manager) ToggleItem(phaseID, itemID string) bool {
	return m.setChecked(phaseID, itemID, func(it *Item) { it.Checked = !it.Checked })
}

func (m *Manager) setChecked(phaseID, itemID string, apply func(*Item)) bool {
	cl := m.checklists[phaseID]
	if cl == nil {
		return false
	}
	it := cl.Item(itemID)
	if it == nil {
		return false
	}
	apply(it)
	return true
}

// ResetAll clears every checklist and returns to the first phase in auto
// mode.
func (m *Manager) ResetAll() {
	for _, cl := range m.checklists {
		cl.Reset()
	}
	m.currentPhase = flight.PhaseCockpitPreparation
	m.phaseMode = PhaseModeAuto
	m.phaseHistory = []string{}
	m.logger.Info("All checklists reset")
}

// UpdateVerification re-evaluates the verified flag of every item watching
// the given sim variable.
func (m *Manager) UpdateVerification(varName string, value float64) {
	for _, cl := range m.checklists {
		for _, it := range cl.Items {
			if it.Verify == nil || it.Verify.Var != varName {
				continue
			}
			v := it.Verify.Evaluate(value)
			it.Verified = &v
		}
	}
}

// AllChecklists returns a copy of every checklist keyed by phase id. The
// copies are detached from the manager's state: callers may read or marshal
// them off the engine goroutine.
func (m *Manager) AllChecklists() map[string]*Checklist {
	out := make(map[string]*Checklist, len(m.checklists))
	for id, cl := range m.checklists {
		out[id] = cl.Clone()
	}
	return out
}

// Snapshot returns the checklist state for broadcast. The embedded checklist
// is a detached copy, safe to marshal off the engine goroutine.
func (m *Manager) Snapshot() State {
	history := make([]string, len(m.phaseHistory))
	copy(history, m.phaseHistory)
	return State{
		Phase:        m.currentPhase,
		PhaseDisplay: m.currentPhase.Display(),
		PhaseMode:    m.phaseMode,
		Checklist:    m.CurrentChecklist().Clone(),
		PhaseHistory: history,
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
