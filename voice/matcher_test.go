package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  CHECKED  ", "checked"},
		{"T.O. (BOTH)", "to both"},
		{"TA/RA", "tara"},
		{"gear   down", "gear down"},
		{"___KG CHECKED", "kg checked"},
		{"anti-ice", "anti-ice"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestMatch_Exact(t *testing.T) {
	m := NewMatcher()
	conf, ok := m.Match("Gear down", "DOWN")
	assert.True(t, ok)
	// "down" is spoken within "gear down": phrase tier, not exact.
	assert.Equal(t, confidencePhrase, conf)

	conf, ok = m.Match("removed", "REMOVED")
	assert.True(t, ok)
	assert.Equal(t, confidenceExact, conf)
}

func TestMatch_Universal(t *testing.T) {
	m := NewMatcher()
	conf, ok := m.Match("checked", "ON")
	assert.True(t, ok)
	assert.Equal(t, confidenceUniversal, conf)
}

func TestMatch_PhraseTable(t *testing.T) {
	m := NewMatcher()

	conf, ok := m.Match("take off", "T.O.")
	assert.True(t, ok)
	assert.Equal(t, confidencePhrase, conf)

	conf, ok = m.Match("traffic alert", "TA/RA")
	assert.True(t, ok)
	assert.Equal(t, confidencePhrase, conf)
}

func TestMatch_LevenshteinTolerance(t *testing.T) {
	m := NewMatcher()
	// One transcription slip per word still hits the phrase tier.
	conf, ok := m.Match("gear don", "DOWN")
	assert.True(t, ok)
	assert.Equal(t, confidencePhrase, conf)
}

func TestMatch_TokenOverlap(t *testing.T) {
	m := NewMatcher()
	// Not in the phrase table; half the expected words suffice.
	conf, ok := m.Match("flight instruments", "FLIGHT INSTRUMENTS CHECKED")
	assert.True(t, ok)
	assert.Equal(t, confidenceOverlap, conf)
}

func TestMatch_Reject(t *testing.T) {
	m := NewMatcher()
	_, ok := m.Match("bananas", "DOWN")
	assert.False(t, ok)

	_, ok = m.Match("", "DOWN")
	assert.False(t, ok)
}

func TestAcceptedPhrases(t *testing.T) {
	m := NewMatcher()
	phrases := m.AcceptedPhrases("DOWN")
	assert.Contains(t, phrases, "gear down")
	assert.Contains(t, phrases, "down")
	assert.Contains(t, phrases, "checked") // universal
}
