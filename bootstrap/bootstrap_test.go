package bootstrap

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/streamkit/component"
	"github.com/kbukum/streamkit/config"
	"github.com/kbukum/streamkit/logger"
)

type testConfig struct {
	config.ServiceConfig `mapstructure:",squash"`
}

type mockComponent struct {
	name     string
	startErr error
	health   component.HealthStatus
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	*m.events = append(*m.events, "start "+m.name)
	return m.startErr
}

func (m *mockComponent) Stop(context.Context) error {
	*m.events = append(*m.events, "stop "+m.name)
	return nil
}

func (m *mockComponent) Health(context.Context) component.Health {
	status := m.health
	if status == "" {
		status = component.StatusHealthy
	}
	return component.Health{Name: m.name, Status: status}
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "streamd", Version: "1.0.0"}}
	app, err := NewApp(cfg, append([]Option{WithLogger(logger.Nop())}, opts...)...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestNewApp_AppliesDefaults(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "streamd" || app.Version != "1.0.0" {
		t.Errorf("unexpected identity %s %s", app.Name, app.Version)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", app.Cfg.Environment)
	}
	if app.gracefulTimeout != defaultGracefulTimeout {
		t.Errorf("gracefulTimeout = %s", app.gracefulTimeout)
	}
}

func TestNewApp_Validation(t *testing.T) {
	_, err := NewApp(&testConfig{})
	if err == nil || !strings.Contains(err.Error(), "config.name is required") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWithGracefulTimeout(t *testing.T) {
	app := newTestApp(t, WithGracefulTimeout(time.Second))
	if app.gracefulTimeout != time.Second {
		t.Errorf("gracefulTimeout = %s", app.gracefulTimeout)
	}
}

func TestRegisterComponent_Duplicate(t *testing.T) {
	app := newTestApp(t)
	var events []string
	if err := app.RegisterComponent(&mockComponent{name: "database", events: &events}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := app.RegisterComponent(&mockComponent{name: "database", events: &events}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRun_Lifecycle(t *testing.T) {
	app := newTestApp(t)
	var events []string
	_ = app.RegisterComponent(&mockComponent{name: "database", events: &events})
	_ = app.RegisterComponent(&mockComponent{name: "http-server", events: &events})
	app.OnStart(func(context.Context) error { events = append(events, "seed"); return nil })
	app.OnReady(func(context.Context) error { events = append(events, "ready"); return nil })
	app.OnStop(func(context.Context) error { events = append(events, "flush"); return nil })

	if err := app.Run(canceled()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "start database,start http-server,seed,ready,flush,stop http-server,stop database"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events = %s\nwant     %s", got, want)
	}
}

func TestRun_StartFailureStopsStartedComponents(t *testing.T) {
	app := newTestApp(t)
	var events []string
	_ = app.RegisterComponent(&mockComponent{name: "database", events: &events})
	_ = app.RegisterComponent(&mockComponent{name: "http-server", startErr: errors.New("port in use"), events: &events})

	err := app.Run(canceled())
	if err == nil || !strings.Contains(err.Error(), "port in use") {
		t.Fatalf("expected start error, got %v", err)
	}
	if got := strings.Join(events, ","); got != "start database,start http-server,stop database" {
		t.Errorf("events = %s", got)
	}
}

func TestRun_HookErrorStopsStartup(t *testing.T) {
	app := newTestApp(t)
	var readyRan bool
	app.OnStart(func(context.Context) error { return errors.New("seed failed") })
	app.OnReady(func(context.Context) error { readyRan = true; return nil })

	err := app.Run(canceled())
	if err == nil || !strings.Contains(err.Error(), "seed failed") {
		t.Fatalf("expected hook error, got %v", err)
	}
	if readyRan {
		t.Error("OnReady must not run after a failed OnStart hook")
	}
}

func TestReadyCheck(t *testing.T) {
	app := newTestApp(t)
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Errorf("empty registry should be ready: %v", err)
	}

	var events []string
	_ = app.RegisterComponent(&mockComponent{name: "database", health: component.StatusDegraded, events: &events})
	err := app.ReadyCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "database=degraded") {
		t.Errorf("expected degraded database in %v", err)
	}
}
