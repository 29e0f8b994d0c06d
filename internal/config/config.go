// Package config loads daemon settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NaturesHolismMELV/AIOS/internal/environment"
	"github.com/NaturesHolismMELV/AIOS/internal/logging"
)

// #region types
// Config is the full daemon configuration.
type Config struct {
	Log            logging.Config     `yaml:"log"`
	Journal        Journal            `yaml:"journal"`
	Simulation     Simulation         `yaml:"simulation"`
	HealthInterval time.Duration      `yaml:"health_interval"`
	Environment    map[string]float64 `yaml:"environment"`
	// Watch re-applies the environment section when the file changes.
	Watch bool `yaml:"watch"`
}

// Journal configures the SQLite audit trail. An empty path disables it.
type Journal struct {
	Path   string `yaml:"path"`
	Buffer int    `yaml:"buffer"`
}

// Simulation configures the synthetic interaction driver.
type Simulation struct {
	Enabled      bool          `yaml:"enabled"`
	Workers      int           `yaml:"workers"`
	MinInterval  time.Duration `yaml:"min_interval"`
	MaxInterval  time.Duration `yaml:"max_interval"`
	ConflictRate float64       `yaml:"conflict_rate"`
	MaturityRate float64       `yaml:"maturity_rate"`
	Seed         uint64        `yaml:"seed"`
}

// #endregion types

// #region defaults
// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:     logging.Config{Level: "info"},
		Journal: Journal{Buffer: 256},
		Simulation: Simulation{
			Enabled:      true,
			Workers:      1,
			MinInterval:  2 * time.Second,
			MaxInterval:  5 * time.Second,
			ConflictRate: 0.12,
			MaturityRate: 0.3,
		},
		HealthInterval: 30 * time.Second,
	}
}

// #endregion defaults

// #region load
// Load reads path over the defaults, applies MELV_* overrides and validates
// the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Log.Level = envOr("MELV_LOG_LEVEL", c.Log.Level)
	c.Log.File = envOr("MELV_LOG_FILE", c.Log.File)
	c.Journal.Path = envOr("MELV_JOURNAL", c.Journal.Path)
	if v := os.Getenv("MELV_SIM_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse MELV_SIM_INTERVAL: %w", err)
		}
		c.Simulation.MinInterval = d
		c.Simulation.MaxInterval = d
	}
	return nil
}

// #endregion load

// #region validate
// Validate checks ranges and channel names.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Journal.Buffer < 0 {
		errs = append(errs, fmt.Errorf("journal.buffer must be >= 0, got %d", c.Journal.Buffer))
	}
	s := c.Simulation
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("simulation.workers must be >= 1, got %d", s.Workers))
	}
	if s.MinInterval <= 0 || s.MaxInterval < s.MinInterval {
		errs = append(errs, fmt.Errorf("simulation interval [%s, %s] is invalid", s.MinInterval, s.MaxInterval))
	}
	if s.ConflictRate < 0 || s.ConflictRate > 1 {
		errs = append(errs, fmt.Errorf("simulation.conflict_rate %.2f outside [0, 1]", s.ConflictRate))
	}
	if s.MaturityRate < 0 || s.MaturityRate > 1 {
		errs = append(errs, fmt.Errorf("simulation.maturity_rate %.2f outside [0, 1]", s.MaturityRate))
	}
	if c.HealthInterval < 0 {
		errs = append(errs, fmt.Errorf("health_interval must be >= 0, got %s", c.HealthInterval))
	}
	if _, err := c.Provisioning(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Provisioning resolves the environment map to resource channels.
func (c Config) Provisioning() (map[environment.Resource]float64, error) {
	out := make(map[environment.Resource]float64, len(c.Environment))
	for name, v := range c.Environment {
		r, err := environment.ParseResource(name)
		if err != nil {
			return nil, fmt.Errorf("environment: %w", err)
		}
		out[r] = v
	}
	return out, nil
}

// #endregion validate

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
