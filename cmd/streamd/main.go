// Command streamd serves the events demo: database rows streamed as JSON
// arrays and objects, and binary payloads streamed as hex lines.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/streamkit/bootstrap"
	"github.com/kbukum/streamkit/config"
	"github.com/kbukum/streamkit/database"
	"github.com/kbukum/streamkit/internal/events"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/server"
	"github.com/kbukum/streamkit/version"
)

const serviceName = "streamd"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg); err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	if err := initTelemetry(ctx, app); err != nil {
		return err
	}
	metrics, err := observability.NewStreamMetrics(observability.Meter())
	if err != nil {
		return fmt.Errorf("stream metrics: %w", err)
	}

	db := database.NewComponent(cfg.Database, log).WithAutoMigrate(&events.Event{})
	if err := app.RegisterComponent(db); err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyDefaults(app.Name, app.Components.HealthAll)
	events.NewHandlers(db, cfg.Stream, metrics, log).Register(srv.GinEngine())
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	if cfg.Seed {
		app.OnStart(func(ctx context.Context) error {
			if db.DB() == nil {
				log.Warn("Database disabled, skipping seed")
				return nil
			}
			return events.Seed(ctx, db.DB().GormDB)
		})
	}

	return app.Run(ctx)
}

// initTelemetry installs the OTLP trace and meter providers when enabled and
// flushes them on shutdown.
func initTelemetry(ctx context.Context, app *bootstrap.App[*Config]) error {
	cfg := app.Cfg.Observability
	if !cfg.Enabled {
		return nil
	}
	svc := observability.Service{
		Name:        app.Name,
		Version:     app.Version,
		Environment: app.Cfg.Environment,
	}

	tp, err := observability.InitTracer(ctx, cfg, svc)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	mp, err := observability.InitMeter(ctx, cfg, svc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("meter: %w", err)
	}

	app.OnStop(func(ctx context.Context) error {
		if err := mp.Shutdown(ctx); err != nil {
			app.Logger.Warn("Meter shutdown failed", logger.ErrorFields("meter.shutdown", err))
		}
		return tp.Shutdown(ctx)
	})
	return nil
}
