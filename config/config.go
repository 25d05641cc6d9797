// Package config provides configuration loading for the companion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete companion configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Sim    SimConfig    `yaml:"sim"`
	Data   DataConfig   `yaml:"data"`
	NATS   NATSConfig   `yaml:"nats"`
	Voice  VoiceConfig  `yaml:"voice"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Host is the bind address. 0.0.0.0 exposes the UI to tablets on the LAN.
	Host string `yaml:"host"`
	// Port is the HTTP listen port.
	Port int `yaml:"port"`
}

// SimConfig configures the sim bridge link.
type SimConfig struct {
	// Enabled turns telemetry polling on.
	Enabled bool `yaml:"enabled"`
	// BridgeURL is the base URL of the SimConnect HTTP bridge.
	BridgeURL string `yaml:"bridge_url"`
	// PollRateHz is the telemetry poll frequency.
	PollRateHz int `yaml:"poll_rate_hz"`
	// RetryInterval is the wait between reconnect attempts.
	RetryInterval time.Duration `yaml:"retry_interval"`
	// AutoPhaseTransition lets detected phases drive the active checklist.
	AutoPhaseTransition bool `yaml:"auto_phase_transition"`
}

// DataConfig locates the data files on disk.
type DataConfig struct {
	// Dir is the data directory root.
	Dir string `yaml:"dir"`
	// ChecklistFile is the normal checklist document.
	ChecklistFile string `yaml:"checklist_file"`
	// TrainingChecklistFile is the training checklist document.
	TrainingChecklistFile string `yaml:"training_checklist_file"`
	// SettingsFile persists user settings.
	SettingsFile string `yaml:"settings_file"`
	// AudioDir holds recorded voice files.
	AudioDir string `yaml:"audio_dir"`
	// FrontendDir holds the static web UI.
	FrontendDir string `yaml:"frontend_dir"`
}

// NATSConfig configures the internal bus.
type NATSConfig struct {
	// URL of an external NATS server (empty = embedded).
	URL string `yaml:"url"`
	// Embedded runs the in-process server.
	Embedded bool `yaml:"embedded"`
}

// VoiceConfig configures the voice pipeline.
type VoiceConfig struct {
	// Enabled turns the voice endpoints and events on.
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Sim: SimConfig{
			Enabled:             true,
			BridgeURL:           "http://localhost:8070",
			PollRateHz:          10,
			RetryInterval:       5 * time.Second,
			AutoPhaseTransition: true,
		},
		Data: DataConfig{
			Dir:                   "data",
			ChecklistFile:         "data/A320_Normal_Checklist_2026.json",
			TrainingChecklistFile: "data/A320_Training_Checklist_2026.json",
			SettingsFile:          "data/settings.json",
			AudioDir:              "data/audio",
			FrontendDir:           "frontend",
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Voice: VoiceConfig{
			Enabled: true,
		},
	}
}

// PollInterval converts the poll rate to a duration.
func (c *SimConfig) PollInterval() time.Duration {
	if c.PollRateHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.PollRateHz)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Sim.Enabled {
		if c.Sim.BridgeURL == "" {
			return fmt.Errorf("sim.bridge_url is required when sim.enabled is true")
		}
		if c.Sim.PollRateHz <= 0 {
			return fmt.Errorf("sim.poll_rate_hz must be positive")
		}
	}
	if c.Data.ChecklistFile == "" {
		return fmt.Errorf("data.checklist_file is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered on defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}

	// Sim
	if other.Sim.BridgeURL != "" {
		c.Sim.BridgeURL = other.Sim.BridgeURL
	}
	if other.Sim.PollRateHz != 0 {
		c.Sim.PollRateHz = other.Sim.PollRateHz
	}
	if other.Sim.RetryInterval != 0 {
		c.Sim.RetryInterval = other.Sim.RetryInterval
	}
	c.Sim.Enabled = other.Sim.Enabled
	c.Sim.AutoPhaseTransition = other.Sim.AutoPhaseTransition

	// Data
	if other.Data.Dir != "" {
		c.Data.Dir = other.Data.Dir
	}
	if other.Data.ChecklistFile != "" {
		c.Data.ChecklistFile = other.Data.ChecklistFile
	}
	if other.Data.TrainingChecklistFile != "" {
		c.Data.TrainingChecklistFile = other.Data.TrainingChecklistFile
	}
	if other.Data.SettingsFile != "" {
		c.Data.SettingsFile = other.Data.SettingsFile
	}
	if other.Data.AudioDir != "" {
		c.Data.AudioDir = other.Data.AudioDir
	}
	if other.Data.FrontendDir != "" {
		c.Data.FrontendDir = other.Data.FrontendDir
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	// Voice
	c.Voice.Enabled = other.Voice.Enabled
}
