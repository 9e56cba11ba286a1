package client

import (
	"fmt"
	"time"

	"github.com/kbukum/livequery/config"
	"github.com/kbukum/livequery/eventsource"
	"github.com/kbukum/livequery/httpclient"
	"github.com/kbukum/livequery/observability"
	"github.com/kbukum/livequery/validation"
)

// DefaultAPIKeyHeader carries the API key when none is configured.
const DefaultAPIKeyHeader = "x-api-key"

// Config is the complete client configuration, loadable with
// config.LoadConfig.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the GraphQL endpoint streaming operations connect to.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	// HTTPEndpoint receives queries and mutations. Defaults to Endpoint.
	HTTPEndpoint string `yaml:"http_endpoint" mapstructure:"http_endpoint" validate:"omitempty,url"`

	EventSource   eventsource.Config   `yaml:"eventsource" mapstructure:"eventsource"`
	HTTP          httpclient.Config    `yaml:"http" mapstructure:"http"`
	Auth          AuthConfig           `yaml:"auth" mapstructure:"auth"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// AuthConfig selects where bearer tokens come from.
type AuthConfig struct {
	// Token is a fixed bearer token.
	Token string `yaml:"token" mapstructure:"token"`
	// TokenEnv names an environment variable read on every operation.
	TokenEnv string `yaml:"token_env" mapstructure:"token_env"`
	// Template is passed to the token provider.
	Template string `yaml:"template" mapstructure:"template"`
	// AllowAnonymous sends operations without a token when none is
	// available.
	AllowAnonymous bool `yaml:"allow_anonymous" mapstructure:"allow_anonymous"`
	// Leeway tolerates clock skew when checking token expiry.
	Leeway time.Duration `yaml:"leeway" mapstructure:"leeway" validate:"gte=0"`
	// APIKey is sent on every request in APIKeyHeader.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// APIKeyHeader defaults to x-api-key.
	APIKeyHeader string `yaml:"api_key_header" mapstructure:"api_key_header"`
}

// ApplyDefaults fills unset fields. A configuration with only an API key
// allows operations without a bearer token.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.HTTPEndpoint == "" {
		c.HTTPEndpoint = c.Endpoint
	}
	if c.EventSource.Retry.BackoffFactor == 0 && c.EventSource.Retry.Jitter == 0 {
		defaults := eventsource.DefaultConfig()
		c.EventSource.Retry.BackoffFactor = defaults.Retry.BackoffFactor
		c.EventSource.Retry.Jitter = defaults.Retry.Jitter
	}
	c.EventSource.ApplyDefaults()

	if c.HTTP.BaseURL == "" {
		c.HTTP.BaseURL = c.HTTPEndpoint
	}
	if c.HTTP.Retry == nil {
		c.HTTP.Retry = httpclient.DefaultRetryConfig()
	}
	c.HTTP.ApplyDefaults()

	if c.Auth.APIKey != "" {
		if c.Auth.APIKeyHeader == "" {
			c.Auth.APIKeyHeader = DefaultAPIKeyHeader
		}
		if c.Auth.Token == "" && c.Auth.TokenEnv == "" {
			c.Auth.AllowAnonymous = true
		}
	}

	c.Observability.ApplyDefaults(c.Name, c.Version)
	if c.Observability.Tracing.Environment == "" {
		c.Observability.Tracing.Environment = c.Environment
	}
	if c.Observability.Metrics.Environment == "" {
		c.Observability.Metrics.Environment = c.Environment
	}
}

// Validate checks the configuration and every nested section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&endpoints{Endpoint: c.Endpoint, HTTPEndpoint: c.HTTPEndpoint}); err != nil {
		return err
	}
	if err := validation.Validate(&c.Auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.EventSource.Validate(); err != nil {
		return fmt.Errorf("eventsource: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return c.Observability.Validate()
}

type endpoints struct {
	Endpoint     string `validate:"required,url"`
	HTTPEndpoint string `validate:"omitempty,url"`
}
