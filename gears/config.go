package gears

import (
	"fmt"

	"github.com/kbukum/gearsclient/config"
	"github.com/kbukum/gearsclient/logger"
	"github.com/kbukum/gearsclient/redis"
	"github.com/kbukum/gearsclient/validation"
)

// Config configures a Client.
type Config struct {
	// Reader is the reader new builders start from.
	Reader string `mapstructure:"reader" validate:"required"`
	// DefaultArg is the reader argument used when Run gets none.
	DefaultArg string `mapstructure:"default_arg"`
	// Command is the server command that executes bootstrap scripts.
	Command string `mapstructure:"command" validate:"required"`

	Redis   redis.Config  `mapstructure:"redis"`
	Logging logger.Config `mapstructure:"logging"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Reader == "" {
		c.Reader = DefaultReader
	}
	if c.DefaultArg == "" {
		c.DefaultArg = DefaultReaderArg
	}
	if c.Command == "" {
		c.Command = DefaultCommand
	}
	c.Redis.Enabled = true
	c.Redis.ApplyDefaults()
	c.Logging.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// LoadConfig reads gears.yml (or config/gears.yml) and GEARS_* environment
// variables, applies defaults and validates the result.
func LoadConfig(opts ...config.LoaderOption) (*Config, error) {
	var cfg Config
	if err := config.LoadConfig("gears", &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
