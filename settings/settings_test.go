package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_DefaultsWhenMissing(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "settings.json"), nil)

	s := m.Get()
	assert.Empty(t, s.SimBriefUsername)
	assert.False(t, s.DarkMode)
	assert.True(t, s.Voice.Enabled)
	assert.Equal(t, 1.0, s.Voice.Volume)
}

func TestManager_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "settings.json")
	m := NewManager(path, nil)

	_, err := m.Update(func(s *Settings) {
		s.SimBriefUsername = "pilot123"
		s.DarkMode = true
	})
	require.NoError(t, err)

	// A fresh manager sees the saved values.
	m2 := NewManager(path, nil)
	s := m2.Get()
	assert.Equal(t, "pilot123", s.SimBriefUsername)
	assert.True(t, s.DarkMode)
	assert.Equal(t, "pilot123", m2.SimBriefUsername())
}

func TestManager_UpdateKeepsUnrelatedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewManager(path, nil)

	_, err := m.Update(func(s *Settings) { s.SimBriefUsername = "pilot123" })
	require.NoError(t, err)
	_, err = m.Update(func(s *Settings) { s.TrainingMode = true })
	require.NoError(t, err)

	s := m.Get()
	assert.Equal(t, "pilot123", s.SimBriefUsername)
	assert.True(t, s.TrainingMode)
	assert.True(t, s.Voice.AutoReadChallenges)
}

func TestManager_CorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	m := NewManager(path, nil)
	assert.Equal(t, Default(), m.Get())
}

func TestManager_SaveFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewManager(path, nil)

	_, err := m.Update(func(s *Settings) { s.SimBriefUsername = "abc" })
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "abc", raw["simbrief_username"])
	assert.Contains(t, raw, "voice")
}
