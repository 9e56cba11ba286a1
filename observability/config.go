package observability

import (
	"fmt"
	"time"

	"github.com/kbukum/livequery/validation"
)

// Config groups the tracing and metrics exporters.
type Config struct {
	Tracing TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults fills unset fields of both exporters.
func (c *Config) ApplyDefaults(serviceName, serviceVersion string) {
	c.Tracing.applyDefaults(serviceName, serviceVersion)
	c.Metrics.applyDefaults(serviceName, serviceVersion)
}

// Validate checks the enabled exporters.
func (c *Config) Validate() error {
	if c.Tracing.Enabled {
		if err := validation.Validate(&c.Tracing); err != nil {
			return fmt.Errorf("observability.tracing: %w", err)
		}
	}
	if c.Metrics.Enabled {
		if err := validation.Validate(&c.Metrics); err != nil {
			return fmt.Errorf("observability.metrics: %w", err)
		}
	}
	return nil
}

// TracerConfig configures the OpenTelemetry tracer.
type TracerConfig struct {
	// Enabled turns on the OTLP trace exporter.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name" validate:"required"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required,hostname_port"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// DefaultTracerConfig returns sensible defaults for development.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

func (c *TracerConfig) applyDefaults(serviceName, serviceVersion string) {
	if c.ServiceName == "" {
		c.ServiceName = serviceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = serviceVersion
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 && c.Enabled {
		c.SampleRate = 1.0
	}
}

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// Enabled turns on the OTLP metric exporter.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name" validate:"required"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required,hostname_port"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

func (c *MeterConfig) applyDefaults(serviceName, serviceVersion string) {
	if c.ServiceName == "" {
		c.ServiceName = serviceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = serviceVersion
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
}
