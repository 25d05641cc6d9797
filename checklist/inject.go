package checklist

import (
	"fmt"
	"strings"

	"github.com/benlarsendk/a320-checklist-companion/simbrief"
)

// PlanValues carries the flight-plan figures that can be substituted into
// checklist item responses. Zero values are skipped.
type PlanValues struct {
	FuelBlock   int     // block/ramp fuel
	FuelUnits   string  // KG or LBS
	OriginQNH   int     // hPa
	DestQNH     int     // hPa
	TrimPercent float64 // pitch trim
}

// planTarget describes one injectable item: which value it receives and how
// it is rendered.
type planTarget struct {
	kind  string
	value func(PlanValues) (string, bool)
}

// planTargets maps item ids to their flight-plan substitution. Matching the
// paper checklist, only four items take values from the OFP.
var planTargets = map[string]planTarget{
	"fuel": {kind: "fuel", value: func(p PlanValues) (string, bool) {
		if p.FuelBlock == 0 {
			return "", false
		}
		return simbrief.FormatGrouped(p.FuelBlock) + " ", true
	}},
	"baro_ref": {kind: "baro", value: func(p PlanValues) (string, bool) {
		if p.OriginQNH == 0 {
			return "", false
		}
		return fmt.Sprintf("%d ", p.OriginQNH), true
	}},
	"baro_ref_ldg": {kind: "baro", value: func(p PlanValues) (string, bool) {
		if p.DestQNH == 0 {
			return "", false
		}
		return fmt.Sprintf("%d ", p.DestQNH), true
	}},
	"pitch_trim": {kind: "trim", value: func(p PlanValues) (string, bool) {
		if p.TrimPercent == 0 {
			return "", false
		}
		return fmt.Sprintf("%.1f", p.TrimPercent), true
	}},
}

// rawValue returns the unformatted figure stored on the item for the
// frontend to compare against live sim data.
func rawValue(id string, p PlanValues) string {
	switch id {
	case "fuel":
		return fmt.Sprintf("%d", p.FuelBlock)
	case "baro_ref":
		return fmt.Sprintf("%d", p.OriginQNH)
	case "baro_ref_ldg":
		return fmt.Sprintf("%d", p.DestQNH)
	case "pitch_trim":
		return fmt.Sprintf("%g", p.TrimPercent)
	}
	return ""
}

// InjectPlan replaces ___ placeholders in item response templates with
// flight-plan values, wrapped in a span the frontend styles. Items without a
// placeholder or without a matching plan value are untouched.
func (m *Manager) InjectPlan(p PlanValues) {
	injected := 0
	for _, cl := range m.checklists {
		for _, it := range cl.Items {
			if !strings.Contains(it.ResponseTemplate, "___") {
				continue
			}
			target, ok := planTargets[it.ID]
			if !ok {
				continue
			}
			display, ok := target.value(p)
			if !ok {
				continue
			}

			raw := rawValue(it.ID, p)
			kind := target.kind
			it.SimBriefValue = &raw
			it.SimBriefType = &kind

			styled := `<span class="simbrief-value">` + display + `</span>`
			it.Response = strings.ReplaceAll(it.ResponseTemplate, "___", styled)
			injected++
		}
	}
	m.logger.Info("Flight plan values injected", "items", injected)
}

// ClearPlan restores every response template and drops stored plan values.
func (m *Manager) ClearPlan() {
	for _, cl := range m.checklists {
		for _, it := range cl.Items {
			it.Response = it.ResponseTemplate
			it.SimBriefValue = nil
			it.SimBriefType = nil
		}
	}
	m.logger.Info("Flight plan values cleared")
}
