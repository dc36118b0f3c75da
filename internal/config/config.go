// Package config provides configuration types, defaults, and persistence
// for pomobot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pomobot/pomobot/internal/log"
)

// Config holds all configuration options for pomobot.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Session SessionConfig `mapstructure:"session"`
	Idle    IdleConfig    `mapstructure:"idle"`
	Tracing TracingConfig `mapstructure:"tracing"`
	LogPath string        `mapstructure:"log_path"`
}

// StoreConfig holds snapshot persistence settings.
type StoreConfig struct {
	// Path is the SQLite database file for session snapshots.
	// Default: ~/.config/pomobot/snapshots.db
	Path string `mapstructure:"path"`

	// SnapshotMaxAgeHours bounds how long an orphaned snapshot survives
	// before recovery-time cleanup removes it. Default: 24.
	SnapshotMaxAgeHours int `mapstructure:"snapshot_max_age_hours"`
}

// SessionConfig holds session parameter bounds.
type SessionConfig struct {
	// MaxIntervalMinutes is the upper bound for every configurable
	// duration and the interval count. Default: 120.
	MaxIntervalMinutes int `mapstructure:"max_interval_minutes"`
}

// IdleConfig holds idle-sweep timeouts.
type IdleConfig struct {
	// ActiveTimeoutMinutes extends the idle deadline after an
	// acknowledgement while the timer is running. Default: 60.
	ActiveTimeoutMinutes int `mapstructure:"active_timeout_minutes"`

	// PausedTimeoutMinutes extends the idle deadline after an
	// acknowledgement while the timer is paused. Default: 30.
	PausedTimeoutMinutes int `mapstructure:"paused_timeout_minutes"`

	// ProbeTimeoutSeconds bounds the liveness-prompt wait. Default: 60.
	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active. Default: false.
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp". Default: "file".
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	// Default: ~/.config/pomobot/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0). Default: 1.0.
	SampleRate float64 `mapstructure:"sample_rate"`
}

// ActiveTimeout returns the active idle extension as a duration.
func (i IdleConfig) ActiveTimeout() time.Duration {
	return time.Duration(i.ActiveTimeoutMinutes) * time.Minute
}

// PausedTimeout returns the paused idle extension as a duration.
func (i IdleConfig) PausedTimeout() time.Duration {
	return time.Duration(i.PausedTimeoutMinutes) * time.Minute
}

// ProbeTimeout returns the liveness-probe bound as a duration.
func (i IdleConfig) ProbeTimeout() time.Duration {
	return time.Duration(i.ProbeTimeoutSeconds) * time.Second
}

// MaxInterval returns the session parameter upper bound as a duration.
func (s SessionConfig) MaxInterval() time.Duration {
	return time.Duration(s.MaxIntervalMinutes) * time.Minute
}

// SnapshotMaxAge returns the orphaned-snapshot cutoff as a duration.
func (s StoreConfig) SnapshotMaxAge() time.Duration {
	return time.Duration(s.SnapshotMaxAgeHours) * time.Hour
}

// DefaultConfigDir returns ~/.config/pomobot, or empty if the home
// directory is unavailable.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pomobot")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultStorePath returns the default snapshot database location.
func DefaultStorePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "snapshots.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// DefaultLogPath returns the default log file location.
func DefaultLogPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "pomobot.log")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Store: StoreConfig{
			Path:                DefaultStorePath(),
			SnapshotMaxAgeHours: 24,
		},
		Session: SessionConfig{
			MaxIntervalMinutes: 120,
		},
		Idle: IdleConfig{
			ActiveTimeoutMinutes: 60,
			PausedTimeoutMinutes: 30,
			ProbeTimeoutSeconds:  60,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		LogPath: DefaultLogPath(),
	}
}

// Validate checks the whole configuration for errors.
func (c Config) Validate() error {
	if c.Session.MaxIntervalMinutes <= 0 {
		return fmt.Errorf("session.max_interval_minutes must be positive, got %d", c.Session.MaxIntervalMinutes)
	}
	if err := ValidateIdle(c.Idle); err != nil {
		return err
	}
	if c.Store.SnapshotMaxAgeHours <= 0 {
		return fmt.Errorf("store.snapshot_max_age_hours must be positive, got %d", c.Store.SnapshotMaxAgeHours)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateIdle checks idle-sweep timeouts for errors.
func ValidateIdle(idle IdleConfig) error {
	if idle.ActiveTimeoutMinutes <= 0 {
		return fmt.Errorf("idle.active_timeout_minutes must be positive, got %d", idle.ActiveTimeoutMinutes)
	}
	if idle.PausedTimeoutMinutes <= 0 {
		return fmt.Errorf("idle.paused_timeout_minutes must be positive, got %d", idle.PausedTimeoutMinutes)
	}
	if idle.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("idle.probe_timeout_seconds must be positive, got %d", idle.ProbeTimeoutSeconds)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" && DefaultTracesFilePath() == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Pomobot Configuration

# Session snapshot persistence
store:
  # SQLite database file for session snapshots
  # path: ~/.config/pomobot/snapshots.db

  # How long an orphaned snapshot survives before cleanup at startup
  snapshot_max_age_hours: 24

# Session parameter bounds
session:
  # Upper bound for focus/break durations and the interval count
  max_interval_minutes: 120

# Idle sweep - abandoned sessions are probed and eventually killed
idle:
  active_timeout_minutes: 60   # Deadline extension while the timer runs
  paused_timeout_minutes: 30   # Deadline extension while the timer is paused
  probe_timeout_seconds: 60    # How long a liveness prompt waits for a reaction

# Log file location
# log_path: ~/.config/pomobot/pomobot.log

# Distributed tracing configuration
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/pomobot/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
