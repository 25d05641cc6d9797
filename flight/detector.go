package flight

// Detector infers the current flight phase from telemetry. It keeps one bit
// of history: whether the aircraft has been airborne since the last reset,
// which disambiguates pre-departure ground phases from post-landing ones.
type Detector struct {
	wasAirborne bool
}

// NewDetector returns a detector in the pre-departure state.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect classifies the state into a phase. Ground speed thresholds are in
// knots, vertical speed in feet/min, altitude in feet AGL.
func (d *Detector) Detect(s State) Phase {
	if s.SimOnGround {
		if d.wasAirborne {
			// Just landed
			if s.GroundVelocity < 5 && !s.EnginesRunning() {
				d.wasAirborne = false
				if s.ParkingBrake {
					return PhaseParking
				}
				return PhaseSecuring
			}
			return PhaseAfterLanding
		}

		// On ground, not yet airborne this session
		if !s.EnginesRunning() {
			if s.ParkingBrake {
				return PhaseCockpitPreparation
			}
			return PhaseParking
		}

		if s.ParkingBrake {
			return PhaseAfterStart
		}

		switch {
		case s.GroundVelocity < 5:
			return PhaseBeforeStart
		case s.GroundVelocity < 30:
			return PhaseTaxi
		default:
			d.wasAirborne = true
			return PhaseTakeoffRoll
		}
	}

	// Airborne
	d.wasAirborne = true

	if s.VerticalSpeed > 500 {
		return PhaseClimb
	}
	if s.VerticalSpeed < -500 {
		if s.AltitudeAGL < 3000 || s.GearHandleDown {
			return PhaseApproach
		}
		return PhaseDescent
	}
	if s.AltitudeAGL < 3000 {
		return PhaseApproach
	}
	return PhaseCruise
}

// SyncToPhase aligns the airborne latch with a phase the pilot selected
// manually, so a later Detect call does not jump backwards.
func (d *Detector) SyncToPhase(p Phase) {
	switch p {
	case PhaseTakeoffRoll, PhaseClimb, PhaseCruise, PhaseDescent,
		PhaseApproach, PhaseLanding, PhaseAfterLanding:
		d.wasAirborne = true
	case PhaseCockpitPreparation, PhaseBeforeStart, PhaseAfterStart,
		PhaseTaxi, PhaseLineUp:
		d.wasAirborne = false
	}
	// Parking and securing keep the latch as-is: they occur both before
	// departure and after landing.
}

// Reset returns the detector to the pre-departure state.
func (d *Detector) Reset() {
	d.wasAirborne = false
}
