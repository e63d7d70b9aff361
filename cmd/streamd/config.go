package main

import (
	"fmt"

	"github.com/kbukum/streamkit/config"
	"github.com/kbukum/streamkit/database"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/server"
	"github.com/kbukum/streamkit/stream"
)

// Config is the streamd configuration, loaded from cmd/streamd/config.yml, the
// environment and an optional .env file.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Stream        stream.Config        `yaml:"stream" mapstructure:"stream"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`

	// Seed inserts the demo events on startup when the table is empty.
	Seed bool `yaml:"seed" mapstructure:"seed"`
}

// ApplyDefaults fills every section's zero values.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Stream.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}
