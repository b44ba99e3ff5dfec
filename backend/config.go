package backend

import (
	"fmt"
	"time"

	"github.com/kbukum/tuplestream/httpclient"
	"github.com/kbukum/tuplestream/resilience"
	"github.com/kbukum/tuplestream/validation"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultHealthPath = "/health"
	defaultStreamPath = "stream"
)

// Config configures the connection to a stream backend.
type Config struct {
	// BaseURL is the backend root; streams go to <BaseURL>/<collection>/stream.
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	StreamPath string        `yaml:"stream_path" mapstructure:"stream_path"`
	HealthPath string        `yaml:"health_path" mapstructure:"health_path"`

	Headers        map[string]string                `yaml:"headers" mapstructure:"headers"`
	Auth           *httpclient.AuthConfig           `yaml:"auth" mapstructure:"auth"`
	TLS            *httpclient.TLSConfig            `yaml:"tls" mapstructure:"tls"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.StreamPath == "" {
		c.StreamPath = defaultStreamPath
	}
	if c.HealthPath == "" {
		c.HealthPath = defaultHealthPath
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	return nil
}

func (c *Config) clientConfig() httpclient.Config {
	return httpclient.Config{
		BaseURL:        c.BaseURL,
		Timeout:        c.Timeout,
		Headers:        c.Headers,
		Auth:           c.Auth,
		TLS:            c.TLS,
		CircuitBreaker: c.CircuitBreaker,
		RateLimiter:    c.RateLimiter,
		// Retry only applies to Do, which serves Ping.
		Retry: httpclient.DefaultRetryConfig(),
	}
}
