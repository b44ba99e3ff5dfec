package httpclient

import (
	"errors"
	"time"

	"github.com/kbukum/tuplestream/resilience"
)

// Config describes how to reach a backend.
type Config struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds Do. Streams are bounded by their context only.
	Timeout time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Auth    *AuthConfig       `yaml:"auth" mapstructure:"auth"`
	TLS     *TLSConfig        `yaml:"tls" mapstructure:"tls"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry applies to Do only; nil disables it.
	Retry          *resilience.RetryConfig          `yaml:"-" mapstructure:"-"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("httpclient: timeout must be positive")
	}
	return c.TLS.Validate()
}

// DefaultRetryConfig retries only errors classified as retryable.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}
