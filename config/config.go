package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go-cycles/scheduler"
)

// MIDIConfig selects the MIDI ports used for playback and note capture
type MIDIConfig struct {
	Port     string         `json:"port,omitempty"`
	Input    string         `json:"input,omitempty"`    // keyboard for note capture
	Channels map[string]int `json:"channels,omitempty"` // stream id -> 1-based channel
}

// Config is the main configuration structure
type Config struct {
	Tempo         float64    `json:"tempo,omitempty"`         // cycles per second
	Period        int        `json:"period,omitempty"`        // ms between lookahead windows
	Latency       int        `json:"latency,omitempty"`       // ms scheduled past the next window
	LateTolerance int        `json:"lateTolerance,omitempty"` // ms before a dispatch counts as late
	MIDI          MIDIConfig `json:"midi,omitempty"`
	Palette       string     `json:"palette,omitempty"`
	Debug         bool       `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tempo:         scheduler.DefaultTempo,
		Period:        int(scheduler.DefaultPeriod / time.Millisecond),
		Latency:       int(scheduler.DefaultLatency / time.Millisecond),
		LateTolerance: int(scheduler.DefaultLateTolerance / time.Millisecond),
		Palette:       "default",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-cycles"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields missing from the file keep
// their defaults; a missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ChannelFor returns the 1-based MIDI channel configured for a stream, or 0
func (c *Config) ChannelFor(streamID string) int {
	ch := c.MIDI.Channels[streamID]
	if ch < 1 || ch > 16 {
		return 0
	}
	return ch
}

// SetChannel assigns a stream to a 1-based MIDI channel; 0 clears it
func (c *Config) SetChannel(streamID string, ch int) {
	if ch == 0 {
		delete(c.MIDI.Channels, streamID)
		return
	}
	if c.MIDI.Channels == nil {
		c.MIDI.Channels = make(map[string]int)
	}
	c.MIDI.Channels[streamID] = ch
}

// SchedulerOptions converts the timing settings to scheduler options
func (c *Config) SchedulerOptions() []scheduler.Option {
	return []scheduler.Option{
		scheduler.WithTempo(c.Tempo),
		scheduler.WithPeriod(time.Duration(c.Period) * time.Millisecond),
		scheduler.WithLatency(time.Duration(c.Latency) * time.Millisecond),
		scheduler.WithLateTolerance(time.Duration(c.LateTolerance) * time.Millisecond),
	}
}
