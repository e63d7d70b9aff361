package database

import (
	"fmt"
	"time"

	"github.com/kbukum/streamkit/validation"
)

// Config holds the SQLite connection and pool settings.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// DSN is the SQLite data source, e.g. "file:events.db" or
	// "file:events?mode=memory&cache=shared" for a pool sharing one in-memory database.
	DSN string `mapstructure:"dsn" validate:"required"`

	MaxOpenConns int `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int `mapstructure:"max_idle_conns" validate:"gt=0,ltefield=MaxOpenConns"`

	// ConnMaxLifetime and ConnMaxIdleTime bound connection reuse. Zero takes
	// the default; a negative idle time (e.g. -1s) keeps idle connections open.
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gt=0"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// AcquireTimeout bounds the wait for a pinned connection when the pool is
	// exhausted. Zero waits as long as the request does.
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" validate:"gte=0"`

	// MaxRetries is the number of connection attempts on start.
	MaxRetries int `mapstructure:"max_retries" validate:"gt=0"`

	AutoMigrate bool `mapstructure:"auto_migrate"`

	// SlowQueryThreshold marks queries logged as slow.
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold" validate:"gt=0"`

	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks an enabled configuration. A disabled one is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	return nil
}
