package cli

import (
	"fmt"

	"github.com/kbukum/tuplestream/backend"
	"github.com/kbukum/tuplestream/config"
	"github.com/kbukum/tuplestream/observability"
	"github.com/kbukum/tuplestream/server"
	"github.com/kbukum/tuplestream/store"
	"github.com/kbukum/tuplestream/version"
)

const serviceName = "tuplestream"

// Config is the configuration of every command.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Store     store.Config         `yaml:"store" mapstructure:"store"`
	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Backend   backend.Config       `yaml:"backend" mapstructure:"backend"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Short()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Store.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Backend.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Backend.Validate()
}

// Load reads the configuration from path, or from the standard locations
// when path is empty, then applies defaults and validates it.
func Load(path string) (*Config, error) {
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
