// Package events is the demo domain served by streamd: a table of labeled
// events with binary payloads, exposed as streamed JSON arrays, per-category
// JSON objects and hex-encoded payload dumps.
package events

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/streamkit/database"
)

// Event is one row of the events table.
type Event struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Category  string    `json:"category" gorm:"index;size:64;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Payload   []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type payloadRow struct {
	Payload []byte
}

const eventColumns = "id, category, name, created_at"

// All lists every event in id order.
func All() database.Query[Event] {
	return database.Query[Event]{
		Resource: "event",
		SQL:      "SELECT " + eventColumns + " FROM events ORDER BY id",
	}
}

// InCategory lists the events of one category in id order.
func InCategory(category string) database.Query[Event] {
	return database.Query[Event]{
		Resource: "event",
		SQL:      "SELECT " + eventColumns + " FROM events WHERE category = ? ORDER BY id",
		Args:     []any{category},
	}
}

// Payloads lists the non-empty payloads in id order.
func Payloads() database.Query[payloadRow] {
	return database.Query[payloadRow]{
		Resource: "payload",
		SQL:      "SELECT payload FROM events WHERE payload IS NOT NULL AND length(payload) > 0 ORDER BY id",
	}
}

// Seed inserts the demo rows when the table is empty.
func Seed(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&Event{}).Count(&n).Error; err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if n > 0 {
		return nil
	}
	return db.WithContext(ctx).Create(DemoEvents()).Error
}

// DemoEvents returns the rows Seed inserts.
func DemoEvents() []Event {
	return []Event{
		{Category: "deploy", Name: "api v1.4.0 rolled out", Payload: []byte{0x00, 0xff}},
		{Category: "alert", Name: "disk usage above 80%", Payload: []byte("disk")},
		{Category: "deploy", Name: "worker v2.1.3 rolled out", Payload: []byte{0xde, 0xad, 0xbe, 0xef}},
		{Category: "audit", Name: "token rotated"},
		{Category: "alert", Name: "latency p99 above 500ms", Payload: []byte{0x01}},
	}
}
