package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cycles/scheduler"
)

func TestLoadFrom_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 0.5, cfg.Tempo)
	assert.Equal(t, 25, cfg.Period)
	assert.Equal(t, 100, cfg.Latency)
	assert.Equal(t, 10, cfg.LateTolerance)
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tempo": 1.5, "midi": {"port": "IAC", "channels": {"s1": 10}}}`), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.Tempo)
	assert.Equal(t, 100, cfg.Latency)
	assert.Equal(t, "IAC", cfg.MIDI.Port)
	assert.Equal(t, 10, cfg.ChannelFor("s1"))
	assert.Zero(t, cfg.ChannelFor("s2"))
}

func TestLoadFrom_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tempo": `), 0644))
	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.MIDI.Port = "FluidSynth"
	cfg.SetChannel("s0", 2)
	cfg.SetChannel("s1", 3)
	cfg.SetChannel("s1", 0)
	cfg.Debug = true

	require.NoError(t, cfg.SaveTo(path))
	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, map[string]int{"s0": 2}, got.MIDI.Channels)
}

func TestChannelFor_OutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetChannel("s0", 17)
	assert.Zero(t, cfg.ChannelFor("s0"))
}

func TestSchedulerOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tempo = 2
	cfg.Period = 5

	c := scheduler.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := scheduler.New(c, nil, cfg.SchedulerOptions()...)
	assert.Equal(t, 2.0, s.Tempo())

	cfg.Period = 0
	s = scheduler.New(c, nil, cfg.SchedulerOptions()...)
	assert.True(t, scheduler.IsConfigError(s.Play()))
}
