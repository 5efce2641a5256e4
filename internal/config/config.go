// Package config loads service settings from HOMERECORD_* environment
// variables.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

const prefix = "HOMERECORD"

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	DBPath   string `envconfig:"DB_PATH" default:"homerecord.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// Timezone defines calendar days for streaks and daily honors.
	Timezone string `envconfig:"TIMEZONE" default:"Local"`
	// CheckRateLimit is the number of honor checks allowed per client IP
	// per minute.
	CheckRateLimit int `envconfig:"CHECK_RATE_LIMIT" default:"30"`
	// SweepSchedule is a five-field cron spec. Empty disables the sweep.
	SweepSchedule string `envconfig:"SWEEP_SCHEDULE"`
}

func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%s_PORT must be 1-65535, got %q", prefix, c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%s_DB_PATH is empty", prefix)
	}
	if c.CheckRateLimit <= 0 {
		return fmt.Errorf("%s_CHECK_RATE_LIMIT must be > 0", prefix)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%s_TIMEZONE: %w", prefix, err)
	}
	if c.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
			return fmt.Errorf("%s_SWEEP_SCHEDULE: %w", prefix, err)
		}
	}
	return nil
}

// Location returns the configured time zone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
