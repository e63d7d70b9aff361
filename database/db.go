package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/resilience"
	"github.com/kbukum/streamkit/stream"
)

// DB wraps a GORM database with streamkit logging.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New opens a database connection with retry logic and connection pooling.
func New(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()

	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
	}

	var db *gorm.DB
	policy := resilience.Policy{
		MaxAttempts: cfg.MaxRetries,
		Initial:     time.Second,
		Jitter:      0.1,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("Database connection attempt failed, retrying", logger.Fields(
				"attempt", attempt,
				logger.FieldError, err.Error(),
				"backoff", wait.String(),
			))
		},
	}
	err := resilience.Do(ctx, policy, func(attempt int) error {
		var openErr error
		if db, openErr = open(ctx, dialector, gormCfg, cfg); openErr != nil {
			return openErr
		}
		log.Info("Database connection established", logger.Fields("attempt", attempt))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{GormDB: db, log: log, cfg: cfg}, nil
}

func open(ctx context.Context, dialector gorm.Dialector, gormCfg *gorm.Config, cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

// Close closes the underlying sql.DB connection pool. Safe to call multiple times.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Info("Closing database connection")
	d.closed = true
	return sqlDB.Close()
}

// PingContext verifies the database connection is alive, respecting the context.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a GORM session scoped to the given context.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate runs GORM auto-migration for the given models.
func (d *DB) AutoMigrate(models ...interface{}) error {
	d.log.Info("Running auto-migration", logger.Fields("models", len(models)))
	for _, model := range models {
		if err := d.GormDB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}

// Pool returns a handle to the shared pool. Queries bound to it may run on
// any pooled connection; releasing the handle leaves the pool open.
func (d *DB) Pool() *stream.Handle[*gorm.DB] {
	return stream.NewHandle(d.GormDB, nil)
}

// Acquire checks one connection out of the pool and pins a GORM session to
// it. Every query bound to the returned handle runs on that connection, and
// the connection goes back to the pool when the last reference is released.
//
// With an AcquireTimeout configured, waiting longer than that for a free
// connection fails with a TIMEOUT error.
func (d *DB) Acquire(ctx context.Context) (*stream.Handle[*gorm.DB], error) {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return nil, FromDatabase(err, "connection")
	}
	conn, err := d.checkout(ctx, sqlDB)
	if err != nil {
		return nil, err
	}

	// A session with its own context clones the statement, so pinning the
	// pool here leaves d.GormDB untouched.
	session := d.GormDB.Session(&gorm.Session{NewDB: true, Context: ctx})
	session.Statement.ConnPool = conn

	return stream.NewHandle(session, func(*gorm.DB) error {
		return conn.Close()
	}), nil
}

func (d *DB) checkout(ctx context.Context, sqlDB *sql.DB) (*sql.Conn, error) {
	if d.cfg.AcquireTimeout <= 0 {
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			return nil, FromDatabase(err, "connection")
		}
		return conn, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, d.cfg.AcquireTimeout)
	defer cancel()
	conn, err := sqlDB.Conn(waitCtx)
	if err == nil {
		return conn, nil
	}
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, apperrors.Timeout("acquire connection").
			WithDetail("wait", d.cfg.AcquireTimeout.String()).
			WithCause(err)
	}
	return nil, FromDatabase(err, "connection")
}

// HealthStatus represents the health status of the database.
type HealthStatus struct {
	Connected  bool          `json:"connected"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency"`
	OpenConns  int           `json:"open_connections"`
	InUseConns int           `json:"in_use_connections"`
	IdleConns  int           `json:"idle_connections"`
}

// CheckHealth pings the database and reports pool statistics.
func (d *DB) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()

	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return HealthStatus{Error: err.Error(), Latency: time.Since(start)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return HealthStatus{Error: err.Error(), Latency: time.Since(start)}
	}

	stats := sqlDB.Stats()
	return HealthStatus{
		Connected:  true,
		Latency:    time.Since(start),
		OpenConns:  stats.OpenConnections,
		InUseConns: stats.InUse,
		IdleConns:  stats.Idle,
	}
}
