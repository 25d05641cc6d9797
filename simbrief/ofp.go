package simbrief

import (
	"regexp"
	"strconv"
	"strings"
)

// The SimBrief API serializes most numbers as JSON strings. flexInt and
// flexFloat accept either representation and treat garbage as zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type ofpAirport struct {
	ICAOCode string `json:"icao_code"`
}

type ofpResponse struct {
	Fetch struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"fetch"`
	Origin      ofpAirport `json:"origin"`
	Destination ofpAirport `json:"destination"`
	Alternate   ofpAirport `json:"alternate"`
	General     struct {
		Route           string  `json:"route"`
		FlightNumber    string  `json:"flight_number"`
		InitialAltitude string  `json:"initial_altitude"`
		CostIndex       flexInt `json:"costindex"`
		StepclimbString string  `json:"stepclimb_string"`
	} `json:"general"`
	Fuel struct {
		PlanRamp    flexInt `json:"plan_ramp"`
		PlanTakeoff flexInt `json:"plan_takeoff"`
		PlanLanding flexInt `json:"plan_landing"`
	} `json:"fuel"`
	Weights struct {
		Payload flexInt   `json:"payload"`
		EstZFW  flexInt   `json:"est_zfw"`
		EstTOW  flexInt   `json:"est_tow"`
		EstLDW  flexInt   `json:"est_ldw"`
		EstTrim flexFloat `json:"est_trim"`
	} `json:"weights"`
	Params struct {
		Units string `json:"units"`
	} `json:"params"`
	Weather struct {
		OrigMETAR string `json:"orig_metar"`
		DestMETAR string `json:"dest_metar"`
	} `json:"weather"`
}

// parseOFP flattens the raw OFP payload into a FlightPlan.
func parseOFP(raw *ofpResponse) *FlightPlan {
	fuelUnits := "LBS"
	weightUnits := "LBS"
	if strings.EqualFold(raw.Params.Units, "kgs") {
		fuelUnits = "KG"
		weightUnits = "KG"
	}

	trim := float64(raw.Weights.EstTrim)
	if trim == 0 {
		// Older OFP layouts carried the trim figure in the stepclimb string.
		if parts := strings.Split(raw.General.StepclimbString, "/"); len(parts) > 0 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil {
				trim = v
			}
		}
	}

	return &FlightPlan{
		Origin:       raw.Origin.ICAOCode,
		Destination:  raw.Destination.ICAOCode,
		Alternate:    raw.Alternate.ICAOCode,
		Route:        raw.General.Route,
		FlightNumber: raw.General.FlightNumber,

		FuelBlock:   int(raw.Fuel.PlanRamp),
		FuelTakeoff: int(raw.Fuel.PlanTakeoff),
		FuelLanding: int(raw.Fuel.PlanLanding),
		FuelUnits:   fuelUnits,

		Payload:     int(raw.Weights.Payload),
		ZFW:         int(raw.Weights.EstZFW),
		TOW:         int(raw.Weights.EstTOW),
		LDW:         int(raw.Weights.EstLDW),
		WeightUnits: weightUnits,

		CruiseAltitude: raw.General.InitialAltitude,
		CostIndex:      int(raw.General.CostIndex),

		OriginMETAR: raw.Weather.OrigMETAR,
		DestMETAR:   raw.Weather.DestMETAR,
		OriginQNH:   ParseQNH(raw.Weather.OrigMETAR),
		DestQNH:     ParseQNH(raw.Weather.DestMETAR),

		TrimPercent: trim,
	}
}

var (
	qnhHPaRe  = regexp.MustCompile(`Q(\d{4})`)
	qnhInHgRe = regexp.MustCompile(`A(\d{4})`)
)

// inHgToHPa converts hundredths of inches of mercury to hectopascals.
const inHgToHPa = 33.8639

// ParseQNH extracts the altimeter setting from a METAR, in hPa. Both the
// Q1013 (hPa) and A2992 (inHg) encodings are handled; inHg is converted.
// Returns 0 when the METAR carries neither.
func ParseQNH(metar string) int {
	if metar == "" {
		return 0
	}
	if m := qnhHPaRe.FindStringSubmatch(metar); m != nil {
		v, _ := strconv.Atoi(m[1])
		return v
	}
	if m := qnhInHgRe.FindStringSubmatch(metar); m != nil {
		hundredths, _ := strconv.Atoi(m[1])
		return int(float64(hundredths) / 100.0 * inHgToHPa)
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// FormatFuel renders a fuel figure with units, e.g. "15,400 KG".
func (p *FlightPlan) FormatFuel(value int) string {
	return FormatGrouped(value) + " " + p.FuelUnits
}

// FormatWeight renders a weight figure with units.
func (p *FlightPlan) FormatWeight(value int) string {
	return FormatGrouped(value) + " " + p.WeightUnits
}

// FormatGrouped renders 15400 as "15,400". Used wherever OFP figures are
// shown to the pilot.
func FormatGrouped(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}
