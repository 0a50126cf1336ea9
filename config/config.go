package config

import (
	"fmt"
	"time"

	"github.com/PrakyathReddy/StackDebt-sub001/github"
	"github.com/PrakyathReddy/StackDebt-sub001/logger"
	"github.com/PrakyathReddy/StackDebt-sub001/resilience"
	"github.com/PrakyathReddy/StackDebt-sub001/scraper"
	"github.com/PrakyathReddy/StackDebt-sub001/server"
	"github.com/PrakyathReddy/StackDebt-sub001/validation"
)

// Config is the full service configuration.
type Config struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`

	Logging   logger.Config   `mapstructure:"logging"`
	Server    server.Config   `mapstructure:"server"`
	GitHub    github.Config   `mapstructure:"github"`
	Scraper   scraper.Config  `mapstructure:"scraper"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// ExternalServices overrides the seeded per-upstream resilience defaults.
	// Entries replace the default for that service name wholesale.
	ExternalServices map[string]resilience.ServiceConfig `mapstructure:"external_services"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	Insecure        bool          `mapstructure:"insecure"`
	MetricInterval  time.Duration `mapstructure:"metric_interval"`
	TraceSampleRate float64       `mapstructure:"trace_sample_rate"`
}

// ApplyDefaults applies default values to unset fields and merges the seeded
// resilience table under any user-provided overrides.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "stackdebt"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}

	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.GitHub.ApplyDefaults()
	c.Scraper.ApplyDefaults()

	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
		c.Telemetry.Insecure = true
	}
	if c.Telemetry.MetricInterval == 0 {
		c.Telemetry.MetricInterval = 15 * time.Second
	}
	if c.Telemetry.TraceSampleRate == 0 {
		c.Telemetry.TraceSampleRate = 1.0
	}

	merged := resilience.DefaultServiceConfigs()
	for name, cfg := range c.ExternalServices {
		merged[name] = cfg
	}
	c.ExternalServices = merged
}

// Validate validates the configuration, including the per-service resilience
// invariants.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, env := range validEnvs {
		if c.Environment == env {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("environment must be one of %v (got: %s)", validEnvs, c.Environment)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	for name, svc := range c.ExternalServices {
		if name == "" {
			return fmt.Errorf("external_services: service name cannot be empty")
		}
		if err := validation.Validate(svc.Retry); err != nil {
			return fmt.Errorf("external_services.%s.retry: %w", name, err)
		}
		if err := validation.Validate(svc.CircuitBreaker); err != nil {
			return fmt.Errorf("external_services.%s.circuit_breaker: %w", name, err)
		}
	}
	return nil
}
