package capture

import (
	"fmt"
	"time"
)

// RetryPolicy controls how the worker reacts to failed device reads.
type RetryPolicy struct {
	// MaxConsecutiveFailures is the number of failed reads in a row after
	// which the worker gives up. 1 makes the first failure fatal.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" json:"max_consecutive_failures"`

	// InitialBackoff is the wait after the first failure. It doubles on
	// every further consecutive failure.
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`

	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration `yaml:"max_backoff" json:"max_backoff"`
}

// Backoff returns the wait before retrying after the n-th consecutive failure.
func (p RetryPolicy) Backoff(n int) time.Duration {
	if n <= 0 || p.InitialBackoff <= 0 {
		return 0
	}
	d := p.InitialBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Config holds worker configuration.
type Config struct {
	Retry RetryPolicy `yaml:"retry" json:"retry"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxConsecutiveFailures: 10,
			InitialBackoff:         10 * time.Millisecond,
			MaxBackoff:             time.Second,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Retry.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("max_consecutive_failures must be at least 1, got %d", c.Retry.MaxConsecutiveFailures)
	}
	if c.Retry.InitialBackoff < 0 {
		return fmt.Errorf("initial_backoff must not be negative, got %v", c.Retry.InitialBackoff)
	}
	if c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) must not be below initial_backoff (%v)",
			c.Retry.MaxBackoff, c.Retry.InitialBackoff)
	}
	return nil
}
