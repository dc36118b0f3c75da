package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, 120, cfg.Session.MaxIntervalMinutes)
	require.Equal(t, 24, cfg.Store.SnapshotMaxAgeHours)
	require.Equal(t, 60, cfg.Idle.ActiveTimeoutMinutes)
	require.Equal(t, 30, cfg.Idle.PausedTimeoutMinutes)
	require.Equal(t, 60, cfg.Idle.ProbeTimeoutSeconds)
	require.False(t, cfg.Tracing.Enabled)
	require.Equal(t, "file", cfg.Tracing.Exporter)

	require.NoError(t, cfg.Validate(), "Defaults must validate")
}

func TestDurationHelpers(t *testing.T) {
	idle := IdleConfig{ActiveTimeoutMinutes: 45, PausedTimeoutMinutes: 15, ProbeTimeoutSeconds: 90}
	require.Equal(t, 45*time.Minute, idle.ActiveTimeout())
	require.Equal(t, 15*time.Minute, idle.PausedTimeout())
	require.Equal(t, 90*time.Second, idle.ProbeTimeout())

	require.Equal(t, 2*time.Hour, SessionConfig{MaxIntervalMinutes: 120}.MaxInterval())
	require.Equal(t, 24*time.Hour, StoreConfig{SnapshotMaxAgeHours: 24}.SnapshotMaxAge())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Session.MaxIntervalMinutes = 0
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Idle.ProbeTimeoutSeconds = -1
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Tracing.SampleRate = 1.5
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Tracing.Exporter = "jaeger"
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.OTLPEndpoint = ""
	require.Error(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err, "A missing config file is not an error")
	require.Equal(t, Defaults().Session, cfg.Session)
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  max_interval_minutes: 90
idle:
  active_timeout_minutes: 45
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 90, cfg.Session.MaxIntervalMinutes)
	require.Equal(t, 45, cfg.Idle.ActiveTimeoutMinutes)
	require.Equal(t, 30, cfg.Idle.PausedTimeoutMinutes, "Unset keys keep defaults")
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  max_interval_minutes: -5
`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "max_interval_minutes")

	// The template must round-trip through Load.
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestSaveIdle_UpdatesSectionPreservingRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`# my config
session:
  max_interval_minutes: 90

idle:
  active_timeout_minutes: 60
  paused_timeout_minutes: 30
  probe_timeout_seconds: 60
`), 0o600))

	require.NoError(t, SaveIdle(path, IdleConfig{
		ActiveTimeoutMinutes: 120,
		PausedTimeoutMinutes: 20,
		ProbeTimeoutSeconds:  45,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "# my config"), "Comments outside the idle section survive")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 120, cfg.Idle.ActiveTimeoutMinutes)
	require.Equal(t, 20, cfg.Idle.PausedTimeoutMinutes)
	require.Equal(t, 45, cfg.Idle.ProbeTimeoutSeconds)
	require.Equal(t, 90, cfg.Session.MaxIntervalMinutes, "Other sections untouched")
}

func TestSaveIdle_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, SaveIdle(path, IdleConfig{
		ActiveTimeoutMinutes: 60,
		PausedTimeoutMinutes: 30,
		ProbeTimeoutSeconds:  60,
	}))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 60, cfg.Idle.ActiveTimeoutMinutes)
}

func TestSaveIdle_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Error(t, SaveIdle(path, IdleConfig{ActiveTimeoutMinutes: 0}))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "Invalid input must not touch the file")
}
