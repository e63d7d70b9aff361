package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/kbukum/streamkit/logger"
)

type event struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	Category string `json:"category"`
	Name     string `json:"name"`
}

// memoryDSN names a shared-cache in-memory database private to the test, so
// every pooled connection sees the same tables.
func memoryDSN(t *testing.T) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
}

func newTestComponent(t *testing.T) *Component {
	t.Helper()
	cfg := Config{Enabled: true, DSN: memoryDSN(t), MaxRetries: 1, AutoMigrate: true, LogLevel: "silent"}
	comp := NewComponent(cfg, logger.Nop()).WithAutoMigrate(&event{})
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = comp.Stop(context.Background()) })
	return comp
}

func seedEvents(t *testing.T, db *DB, events ...event) {
	t.Helper()
	if err := db.GormDB.Create(&events).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func inUse(t *testing.T, db *DB) int {
	t.Helper()
	sqlDB, err := db.GormDB.DB()
	if err != nil {
		t.Fatalf("DB(): %v", err)
	}
	return sqlDB.Stats().InUse
}
