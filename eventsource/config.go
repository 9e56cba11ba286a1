package eventsource

import (
	"time"

	"github.com/kbukum/livequery/resilience"
	"github.com/kbukum/livequery/sse"
	"github.com/kbukum/livequery/validation"
)

// DefaultMaxAttempts is the number of consecutive failed connection attempts
// after which a Source gives up.
const DefaultMaxAttempts = 10

// Config configures reconnection and stall detection.
type Config struct {
	// Retry shapes the reconnect backoff. MaxAttempts counts consecutive
	// failures; negative retries forever.
	Retry resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// IdleTimeout reconnects a connection that delivered no bytes for this
	// long. Zero disables it.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`
	// MaxLineSize bounds one line of the stream.
	MaxLineSize int `yaml:"max_line_size" mapstructure:"max_line_size" validate:"gte=0"`
}

// DefaultConfig returns the reconnect policy used when none is configured.
func DefaultConfig() Config {
	return Config{
		Retry: resilience.RetryConfig{
			MaxAttempts:    DefaultMaxAttempts,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
			BackoffFactor:  2,
			Jitter:         0.2,
		},
		MaxLineSize: sse.DefaultMaxEventSize,
	}
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if c.Retry.InitialBackoff <= 0 {
		c.Retry.InitialBackoff = 500 * time.Millisecond
	}
	if c.Retry.MaxBackoff <= 0 {
		c.Retry.MaxBackoff = 30 * time.Second
	}
	c.Retry.ApplyDefaults()
	if c.MaxLineSize <= 0 {
		c.MaxLineSize = sse.DefaultMaxEventSize
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
