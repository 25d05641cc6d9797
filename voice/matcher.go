// Package voice implements the push-to-talk checklist pipeline: challenge
// read-out, response matching and the audio-file cache behind it. Speech
// synthesis and recognition run in the browser; the server only decides what
// to play and whether a transcript is acceptable.
package voice

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// universalResponses are accepted for any item, at reduced confidence.
var universalResponses = []string{
	"check", "checked",
	"confirm", "confirmed",
	"set",
	"yes",
	"affirmative",
}

// responsePhrases maps normalized expected responses to spoken phrases a
// pilot plausibly uses for them.
var responsePhrases = map[string][]string{
	"removed": {"removed", "remove"},
	"checked": {"checked", "check"},
	"on":      {"on"},
	"off":     {"off"},
	"set":     {"set"},
	"closed":  {"closed", "close"},
	"zero":    {"zero", "neutral"},

	"confirmed": {"confirmed", "confirm", "affirm"},

	"as rqrd":     {"as required", "as needed", "set"},
	"as required": {"as required", "as needed", "set"},

	"nav":  {"nav", "navigation", "navigate"},
	"tara": {"t a r a", "ta ra", "tara", "traffic alert", "traffic"},

	"to":         {"takeoff", "t o", "take off", "set"},
	"to both":    {"takeoff", "t o", "take off", "takeoff both", "set"},
	"to no blue": {"no blue", "takeoff no blue", "t o no blue"},

	"ldg no blue": {"no blue", "landing no blue", "l d g no blue"},
	"up":          {"up", "gear up"},
	"down":        {"down", "gear down"},
	"retracted":   {"retracted", "up", "zero", "flaps up"},
	"armed":       {"armed", "arm"},
	"disarmed":    {"disarmed", "disarm", "retracted"},

	"review":  {"review", "reviewed"},
	"monitor": {"monitor", "monitored", "monitoring"},
	"adjust":  {"adjust", "adjusted", "set"},

	"all or blw": {"all", "below", "all or below", "traffic all", "traffic below"},

	"kg checked":  {"checked", "fuel checked", "kilos checked"},
	"set both":    {"set", "set both", "both set"},
	"closed both": {"closed", "closed both", "both closed"},
	"checked both": {"checked", "checked both", "both checked"},
}

// Match confidence tiers.
const (
	confidenceExact     = 1.0
	confidencePhrase    = 0.9
	confidenceUniversal = 0.8
	confidenceOverlap   = 0.7
)

var (
	punctRe  = regexp.MustCompile(`[^\w\s\-]`)
	spacesRe = regexp.MustCompile(`\s+`)
)

// Matcher compares spoken transcripts against expected checklist responses.
type Matcher struct {
	phraseToResponses map[string][]string
}

// NewMatcher builds a matcher with the reverse phrase lookup populated.
func NewMatcher() *Matcher {
	reverse := make(map[string][]string)
	for response, phrases := range responsePhrases {
		for _, phrase := range phrases {
			reverse[phrase] = append(reverse[phrase], response)
		}
	}
	return &Matcher{phraseToResponses: reverse}
}

// Normalize lowercases, strips punctuation except hyphens and collapses
// whitespace. Placeholder underscores from injected values are dropped too.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = punctRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "_", "")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Match reports whether spoken is an acceptable reading of expected, with a
// confidence score. Exact readings score highest, then phrase-table matches,
// universal acknowledgements, and finally token overlap.
func (m *Matcher) Match(spoken, expected string) (float64, bool) {
	spokenNorm := Normalize(spoken)
	expectedNorm := Normalize(expected)
	if spokenNorm == "" {
		return 0, false
	}

	if spokenNorm == expectedNorm {
		return confidenceExact, true
	}

	for _, universal := range universalResponses {
		if strings.Contains(spokenNorm, universal) {
			return confidenceUniversal, true
		}
	}

	for _, phrase := range responsePhrases[expectedNorm] {
		if phraseMatches(spokenNorm, phrase) {
			return confidencePhrase, true
		}
	}

	for _, response := range m.phraseToResponses[spokenNorm] {
		if response == expectedNorm {
			return confidencePhrase, true
		}
	}

	if tokenOverlap(spokenNorm, expectedNorm) >= 0.5 {
		return confidenceOverlap, true
	}

	return 0, false
}

// AcceptedPhrases lists every phrase that would be accepted for an expected
// response: the universal acknowledgements plus the phrase-table entries.
func (m *Matcher) AcceptedPhrases(expected string) []string {
	expectedNorm := Normalize(expected)

	seen := make(map[string]bool)
	var phrases []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			phrases = append(phrases, p)
		}
	}

	for _, u := range universalResponses {
		add(u)
	}
	for _, p := range responsePhrases[expectedNorm] {
		add(p)
	}
	return phrases
}

// phraseMatches accepts substring containment either way, or a word-by-word
// comparison tolerating one edit per word to absorb transcription slips
// ("flabs up" for "flaps up").
func phraseMatches(spoken, phrase string) bool {
	if strings.Contains(spoken, phrase) || strings.Contains(phrase, spoken) {
		return true
	}
	return wordsClose(spoken, phrase)
}

func wordsClose(a, b string) bool {
	aw := strings.Fields(a)
	bw := strings.Fields(b)
	if len(aw) == 0 || len(aw) != len(bw) {
		return false
	}
	for i := range aw {
		if levenshtein.ComputeDistance(aw[i], bw[i]) > 1 {
			return false
		}
	}
	return true
}

// tokenOverlap returns the fraction of expected's words present in spoken.
func tokenOverlap(spoken, expected string) float64 {
	expectedWords := strings.Fields(expected)
	if len(expectedWords) == 0 {
		return 0
	}
	spokenSet := make(map[string]bool)
	for _, w := range strings.Fields(spoken) {
		spokenSet[w] = true
	}
	hits := 0
	for _, w := range expectedWords {
		if spokenSet[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(expectedWords))
}
