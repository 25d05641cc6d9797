// Package settings persists user preferences as a JSON file next to the
// checklist data. Writes go through a read-modify-write cycle under a lock
// so partial updates never drop fields.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// VoiceSettings controls the voice interaction pipeline.
type VoiceSettings struct {
	Enabled               bool    `json:"enabled"`
	AutoReadChallenges    bool    `json:"auto_read_challenges"`
	AutoAdvanceOnResponse bool    `json:"auto_advance_on_response"`
	Volume                float64 `json:"volume"`
	SpeechRate            float64 `json:"speech_rate"`
}

// Settings is the persisted preference set.
type Settings struct {
	SimBriefUsername string        `json:"simbrief_username"`
	DarkMode         bool          `json:"dark_mode"`
	TrainingMode     bool          `json:"training_mode"`
	Voice            VoiceSettings `json:"voice"`
}

// Default returns the settings used before anything is saved.
func Default() Settings {
	return Settings{
		Voice: VoiceSettings{
			Enabled:               true,
			AutoReadChallenges:    true,
			AutoAdvanceOnResponse: true,
			Volume:                1.0,
			SpeechRate:            1.0,
		},
	}
}

// Manager loads and saves settings. Safe for concurrent use.
type Manager struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	settings Settings
}

// NewManager loads settings from path, falling back to defaults when the
// file is missing or unreadable.
func NewManager(path string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{path: path, logger: logger, settings: Default()}
	m.load()
	return m
}

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Info("No settings file, using defaults", "path", m.path)
		} else {
			m.logger.Error("Failed to read settings", "path", m.path, "error", err)
		}
		return
	}

	loaded := Default()
	if err := json.Unmarshal(data, &loaded); err != nil {
		m.logger.Error("Failed to parse settings, using defaults", "path", m.path, "error", err)
		return
	}

	m.mu.Lock()
	m.settings = loaded
	m.mu.Unlock()
	m.logger.Info("Settings loaded", "path", m.path)
}

// Get returns a copy of the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// SimBriefUsername returns the configured SimBrief username.
func (m *Manager) SimBriefUsername() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.SimBriefUsername
}

// Update applies fn to the settings under lock and persists the result.
func (m *Manager) Update(fn func(*Settings)) (Settings, error) {
	m.mu.Lock()
	fn(&m.settings)
	updated := m.settings
	m.mu.Unlock()

	if err := m.save(updated); err != nil {
		return updated, err
	}
	return updated, nil
}

// save writes atomically: temp file then rename.
func (m *Manager) save(s Settings) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}

	m.logger.Info("Settings saved", "path", m.path)
	return nil
}
