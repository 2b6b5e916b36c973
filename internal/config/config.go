// Package config provides unified configuration loading for kinetic.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kinetic/internal/logging"
)

// Config contains all kinetic configuration settings.
type Config struct {
	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Engine contains default run bounds. Scenario bounds take precedence
	// when set; CLI flags take precedence over both.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Store contains trace persistence settings.
	Store StoreConfig `json:"store" yaml:"store"`

	// Observer contains event delivery settings.
	Observer ObserverConfig `json:"observer" yaml:"observer"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", "trace",
	// "warn" or "error". "debug" logs every step, "trace" additionally
	// logs every rescheduled dependent.
	Level string `json:"level" yaml:"level"`

	// Format is "text" (default) or "json".
	Format string `json:"format" yaml:"format"`
}

// EngineConfig holds default run bounds. Zero means unbounded.
type EngineConfig struct {
	MaxSteps int64   `json:"max_steps" yaml:"max_steps"`
	EndTime  float64 `json:"end_time" yaml:"end_time"`
}

// StoreConfig configures the SQLite trace store.
type StoreConfig struct {
	// Path is the database file. Empty disables persistence for run.
	Path string `json:"path" yaml:"path"`

	// Batch is the number of steps written per transaction.
	Batch int `json:"batch" yaml:"batch"`
}

// ObserverConfig configures how events reach observers.
type ObserverConfig struct {
	// Async delivers events through a bounded queue instead of inline.
	Async bool `json:"async" yaml:"async"`

	// Buffer is the async queue capacity.
	Buffer int `json:"buffer" yaml:"buffer"`

	// LogEvery logs progress every N steps. Zero disables progress logs.
	LogEvery int64 `json:"log_every" yaml:"log_every"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Batch: 512,
		},
		Observer: ObserverConfig{
			Buffer:   256,
			LogEvery: 1000,
		},
	}
}

// Load loads configuration from path (if non-empty) and then applies
// environment variable overrides.
// Order: defaults -> config file -> environment variables
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields the
// file leaves out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{"": true, "text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	if c.Engine.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative, got %d", c.Engine.MaxSteps)
	}
	if c.Engine.EndTime < 0 {
		return fmt.Errorf("end_time must be non-negative, got %g", c.Engine.EndTime)
	}
	if c.Store.Batch < 0 {
		return fmt.Errorf("batch must be non-negative, got %d", c.Store.Batch)
	}
	if c.Observer.Buffer < 0 {
		return fmt.Errorf("buffer must be non-negative, got %d", c.Observer.Buffer)
	}
	if c.Observer.LogEvery < 0 {
		return fmt.Errorf("log_every must be non-negative, got %d", c.Observer.LogEvery)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("KINETIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("KINETIC_DB"); v != "" {
		cfg.Store.Path = v
	}

	if v := os.Getenv("KINETIC_MAX_STEPS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("KINETIC_MAX_STEPS: %w", err)
		}
		cfg.Engine.MaxSteps = n
	}

	if v := os.Getenv("KINETIC_END_TIME"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("KINETIC_END_TIME: %w", err)
		}
		cfg.Engine.EndTime = f
	}

	return nil
}
