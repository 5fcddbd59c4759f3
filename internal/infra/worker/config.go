// Package worker holds the operational shell around the bot process: the
// health endpoints, the scheduled admin digest and their configuration.
package worker

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tubenotify/pkg/config"
)

// Config controls the scheduled digest job and the health server.
type Config struct {
	// DigestSchedule is the cron expression for the daily admin digest,
	// standard five-field format.
	DigestSchedule string
	// Timezone is the IANA timezone the schedule is evaluated in.
	Timezone string
	// HealthPort is the listen port for the liveness and readiness
	// endpoints.
	HealthPort int
	// MetricsPort is the listen port for the Prometheus endpoint.
	MetricsPort int
}

// DefaultConfig returns the production defaults: digest at 09:00 UTC, health
// on 9091, metrics on 9092.
func DefaultConfig() Config {
	return Config{
		DigestSchedule: "0 9 * * *",
		Timezone:       "UTC",
		HealthPort:     9091,
		MetricsPort:    9092,
	}
}

// Validate checks the schedule, timezone and ports. Invalid values are
// reported together so operators fix them in one pass.
func (c *Config) Validate() error {
	var errs []error

	if _, err := cron.ParseStandard(c.DigestSchedule); err != nil {
		errs = append(errs, fmt.Errorf("digest schedule: %w", err))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if c.HealthPort < 1024 || c.HealthPort > 65535 {
		errs = append(errs, fmt.Errorf("health port %d out of range", c.HealthPort))
	}
	if c.MetricsPort < 1024 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics port %d out of range", c.MetricsPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}
	return nil
}

// ConfigFromEnv loads the worker configuration from environment variables.
// Fields that fail validation fall back to their defaults so the process
// always starts.
func ConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		DigestSchedule: config.GetEnvString("DIGEST_SCHEDULE", def.DigestSchedule),
		Timezone:       config.GetEnvString("BOT_TIMEZONE", def.Timezone),
		HealthPort:     config.GetEnvInt("HEALTH_PORT", def.HealthPort),
		MetricsPort:    config.GetEnvInt("METRICS_PORT", def.MetricsPort),
	}
	if err := cfg.Validate(); err != nil {
		return def
	}
	return cfg
}
