package flight

import "testing"

func TestPhaseNavigation(t *testing.T) {
	if got := NextChecklistPhase(PhaseCockpitPreparation); got != PhaseBeforeStart {
		t.Errorf("NextChecklistPhase(cockpit_preparation) = %s, want %s", got, PhaseBeforeStart)
	}
	// Line-up jumps straight to approach: cruise phases carry no checklist.
	if got := NextChecklistPhase(PhaseLineUp); got != PhaseApproach {
		t.Errorf("NextChecklistPhase(line_up) = %s, want %s", got, PhaseApproach)
	}
	if got := NextChecklistPhase(PhaseSecuring); got != "" {
		t.Errorf("NextChecklistPhase(securing) = %s, want empty", got)
	}
	if got := NextChecklistPhase(PhaseCruise); got != "" {
		t.Errorf("NextChecklistPhase(cruise) = %s, want empty", got)
	}

	if got := PrevChecklistPhase(PhaseBeforeStart); got != PhaseCockpitPreparation {
		t.Errorf("PrevChecklistPhase(before_start) = %s, want %s", got, PhaseCockpitPreparation)
	}
	if got := PrevChecklistPhase(PhaseCockpitPreparation); got != "" {
		t.Errorf("PrevChecklistPhase(cockpit_preparation) = %s, want empty", got)
	}
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("approach")
	if err != nil {
		t.Fatalf("ParsePhase(approach) error: %v", err)
	}
	if p != PhaseApproach {
		t.Errorf("ParsePhase(approach) = %s", p)
	}

	if _, err := ParsePhase("warp_speed"); err == nil {
		t.Error("ParsePhase(warp_speed) expected error")
	}
}

func TestPhaseDisplay(t *testing.T) {
	if got := PhaseLineUp.Display(); got != "LINE-UP" {
		t.Errorf("Display() = %q, want LINE-UP", got)
	}
	// Unknown phases fall back to the raw value.
	if got := Phase("custom").Display(); got != "custom" {
		t.Errorf("Display() fallback = %q", got)
	}
}

func TestHasChecklist(t *testing.T) {
	for _, p := range ChecklistPhases {
		if !p.HasChecklist() {
			t.Errorf("%s should have a checklist", p)
		}
	}
	for _, p := range []Phase{PhaseTakeoffRoll, PhaseClimb, PhaseCruise, PhaseDescent} {
		if p.HasChecklist() {
			t.Errorf("%s should not have a checklist", p)
		}
	}
}
