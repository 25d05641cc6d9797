// Package flight defines the flight phase model and the telemetry-driven
// phase detector used to auto-advance checklists.
package flight

import "fmt"

// Phase identifies a segment of the flight.
type Phase string

const (
	// Departure phases
	PhaseCockpitPreparation Phase = "cockpit_preparation"
	PhaseBeforeStart        Phase = "before_start"
	PhaseAfterStart         Phase = "after_start"
	PhaseTaxi               Phase = "taxi"
	PhaseLineUp             Phase = "line_up"

	// Flight phases, detected but carrying no checklist of their own
	PhaseTakeoffRoll Phase = "takeoff_roll"
	PhaseClimb       Phase = "climb"
	PhaseCruise      Phase = "cruise"
	PhaseDescent     Phase = "descent"

	// Arrival phases
	PhaseApproach     Phase = "approach"
	PhaseLanding      Phase = "landing"
	PhaseAfterLanding Phase = "after_landing"
	PhaseParking      Phase = "parking"
	PhaseSecuring     Phase = "securing"
)

// ChecklistPhases is the ordered list of phases that carry a checklist.
// Next/Prev navigation walks this list.
var ChecklistPhases = []Phase{
	PhaseCockpitPreparation,
	PhaseBeforeStart,
	PhaseAfterStart,
	PhaseTaxi,
	PhaseLineUp,
	PhaseApproach,
	PhaseLanding,
	PhaseAfterLanding,
	PhaseParking,
	PhaseSecuring,
}

// phaseDisplay maps phases to the uppercase labels shown in the UI.
var phaseDisplay = map[Phase]string{
	PhaseCockpitPreparation: "COCKPIT PREP",
	PhaseBeforeStart:        "BEFORE START",
	PhaseAfterStart:         "AFTER START",
	PhaseTaxi:               "TAXI",
	PhaseLineUp:             "LINE-UP",
	PhaseTakeoffRoll:        "TAKEOFF",
	PhaseClimb:              "CLIMB",
	PhaseCruise:             "CRUISE",
	PhaseDescent:            "DESCENT",
	PhaseApproach:           "APPROACH",
	PhaseLanding:            "LANDING",
	PhaseAfterLanding:       "AFTER LANDING",
	PhaseParking:            "PARKING",
	PhaseSecuring:           "SECURING",
}

var validPhases = func() map[Phase]bool {
	m := make(map[Phase]bool)
	for p := range phaseDisplay {
		m[p] = true
	}
	return m
}()

// ParsePhase validates a phase string from the wire.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !validPhases[p] {
		return "", fmt.Errorf("unknown phase: %q", s)
	}
	return p, nil
}

// Display returns the UI label for the phase.
func (p Phase) Display() string {
	if d, ok := phaseDisplay[p]; ok {
		return d
	}
	return string(p)
}

// HasChecklist reports whether the phase carries a checklist.
func (p Phase) HasChecklist() bool {
	return checklistPhaseIndex(p) >= 0
}

func checklistPhaseIndex(p Phase) int {
	for i, cp := range ChecklistPhases {
		if cp == p {
			return i
		}
	}
	return -1
}

// NextChecklistPhase returns the checklist phase after current, or "" when
// current is the last checklist phase or not a checklist phase at all.
func NextChecklistPhase(current Phase) Phase {
	idx := checklistPhaseIndex(current)
	if idx < 0 || idx >= len(ChecklistPhases)-1 {
		return ""
	}
	return ChecklistPhases[idx+1]
}

// PrevChecklistPhase returns the checklist phase before current, or "".
func PrevChecklistPhase(current Phase) Phase {
	idx := checklistPhaseIndex(current)
	if idx <= 0 {
		return ""
	}
	return ChecklistPhases[idx-1]
}
