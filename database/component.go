package database

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/streamkit/component"
	"github.com/kbukum/streamkit/logger"
)

// DriverFunc builds a gorm dialector from a DSN.
type DriverFunc func(dsn string) gorm.Dialector

// Component wraps DB and implements component.Component for lifecycle management.
//
// A disabled component starts without connecting and reports itself as
// degraded, so a service can run its non-database routes without one.
type Component struct {
	db     *DB
	cfg    Config
	log    *logger.Logger
	driver DriverFunc
	models []interface{}
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a database component backed by SQLite unless another
// driver is supplied with WithDriver.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:    cfg,
		log:    log.WithComponent("database"),
		driver: func(dsn string) gorm.Dialector { return sqlite.Open(dsn) },
	}
}

// WithDriver replaces the dialector factory.
func (c *Component) WithDriver(fn DriverFunc) *Component {
	if fn != nil {
		c.driver = fn
	}
	return c
}

// WithAutoMigrate registers models for auto-migration on Start.
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects to the database and optionally runs auto-migration.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("Database disabled, skipping connection")
		return nil
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	db, err := New(ctx, c.driver(c.cfg.DSN), c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if c.cfg.AutoMigrate && len(c.models) > 0 {
		if err := c.db.AutoMigrate(c.models...); err != nil {
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	}
	return nil
}

// Stop closes the connection pool.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name()}
	switch {
	case !c.cfg.Enabled:
		h.Status = component.StatusDegraded
		h.Message = "disabled"
	case c.db == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "database not initialized"
	default:
		status := c.db.CheckHealth(ctx)
		if !status.Connected {
			h.Status = component.StatusUnhealthy
			h.Message = "ping failed: " + status.Error
			break
		}
		h.Status = component.StatusHealthy
		h.Message = fmt.Sprintf("open=%d in_use=%d idle=%d", status.OpenConns, status.InUseConns, status.IdleConns)
	}
	return h
}

// Describe reports the pool configuration.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("pool=%d/%d", c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	return component.Description{Type: "sqlite", Details: details}
}
