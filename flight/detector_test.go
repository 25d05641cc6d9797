package flight

import "testing"

func TestDetector_GroundPhases(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Phase
	}{
		{
			name:  "cold and dark",
			state: State{SimOnGround: true, ParkingBrake: true},
			want:  PhaseCockpitPreparation,
		},
		{
			name:  "engines off brake released",
			state: State{SimOnGround: true},
			want:  PhaseParking,
		},
		{
			name:  "engines running brake set",
			state: State{SimOnGround: true, ParkingBrake: true, Eng1Running: true, Eng2Running: true},
			want:  PhaseAfterStart,
		},
		{
			name:  "engines running stationary",
			state: State{SimOnGround: true, Eng1Running: true, GroundVelocity: 2},
			want:  PhaseBeforeStart,
		},
		{
			name:  "taxiing",
			state: State{SimOnGround: true, Eng1Running: true, Eng2Running: true, GroundVelocity: 15},
			want:  PhaseTaxi,
		},
		{
			name:  "takeoff roll",
			state: State{SimOnGround: true, Eng1Running: true, Eng2Running: true, GroundVelocity: 80},
			want:  PhaseTakeoffRoll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			if got := d.Detect(tt.state); got != tt.want {
				t.Errorf("Detect() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetector_AirbornePhases(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Phase
	}{
		{
			name:  "climbing",
			state: State{VerticalSpeed: 1500, AltitudeAGL: 5000},
			want:  PhaseClimb,
		},
		{
			name:  "cruise level high",
			state: State{VerticalSpeed: 0, AltitudeAGL: 35000},
			want:  PhaseCruise,
		},
		{
			name:  "descent clean and high",
			state: State{VerticalSpeed: -1500, AltitudeAGL: 12000},
			want:  PhaseDescent,
		},
		{
			name:  "descent with gear down",
			state: State{VerticalSpeed: -800, AltitudeAGL: 12000, GearHandleDown: true},
			want:  PhaseApproach,
		},
		{
			name:  "descending low",
			state: State{VerticalSpeed: -700, AltitudeAGL: 2000},
			want:  PhaseApproach,
		},
		{
			name:  "level low",
			state: State{VerticalSpeed: 0, AltitudeAGL: 1500},
			want:  PhaseApproach,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			if got := d.Detect(tt.state); got != tt.want {
				t.Errorf("Detect() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetector_LandingSequence(t *testing.T) {
	d := NewDetector()

	// Fly, then touch down still rolling fast.
	d.Detect(State{VerticalSpeed: -600, AltitudeAGL: 500, GearHandleDown: true})
	got := d.Detect(State{SimOnGround: true, Eng1Running: true, Eng2Running: true, GroundVelocity: 60, GearHandleDown: true})
	if got != PhaseAfterLanding {
		t.Fatalf("rollout: Detect() = %s, want %s", got, PhaseAfterLanding)
	}

	// Still taxiing in with engines running.
	got = d.Detect(State{SimOnGround: true, Eng1Running: true, GroundVelocity: 12, GearHandleDown: true})
	if got != PhaseAfterLanding {
		t.Fatalf("taxi in: Detect() = %s, want %s", got, PhaseAfterLanding)
	}

	// Stopped, engines shut down, brake set.
	got = d.Detect(State{SimOnGround: true, ParkingBrake: true, GearHandleDown: true})
	if got != PhaseParking {
		t.Fatalf("parked: Detect() = %s, want %s", got, PhaseParking)
	}

	// The airborne latch cleared on shutdown, so the detector is back in the
	// pre-departure decision tree.
	got = d.Detect(State{SimOnGround: true, ParkingBrake: true, GearHandleDown: true})
	if got != PhaseCockpitPreparation {
		t.Fatalf("turnaround: Detect() = %s, want %s", got, PhaseCockpitPreparation)
	}
}

func TestDetector_SyncToPhase(t *testing.T) {
	d := NewDetector()
	d.SyncToPhase(PhaseApproach)

	// With the latch set, touching down must classify as after landing, not
	// a departure ground phase.
	got := d.Detect(State{SimOnGround: true, Eng1Running: true, Eng2Running: true, GroundVelocity: 40})
	if got != PhaseAfterLanding {
		t.Errorf("Detect() after SyncToPhase(approach) = %s, want %s", got, PhaseAfterLanding)
	}

	d.SyncToPhase(PhaseBeforeStart)
	got = d.Detect(State{SimOnGround: true, Eng1Running: true, GroundVelocity: 2})
	if got != PhaseBeforeStart {
		t.Errorf("Detect() after SyncToPhase(before_start) = %s, want %s", got, PhaseBeforeStart)
	}
}

func TestDetector_Reset(t *testing.T) {
	d := NewDetector()
	d.Detect(State{VerticalSpeed: 1000, AltitudeAGL: 4000}) // go airborne
	d.Reset()

	got := d.Detect(State{SimOnGround: true, ParkingBrake: true})
	if got != PhaseCockpitPreparation {
		t.Errorf("Detect() after Reset() = %s, want %s", got, PhaseCockpitPreparation)
	}
}
