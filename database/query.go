package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/kbukum/streamkit/stream"
)

// Query describes a raw SQL query whose rows decode into T, a struct (mapped
// by gorm's column naming) or a map[string]interface{}. It implements
// stream.Descriptor, so the same value can be bound to a pooled or a pinned
// handle.
type Query[T any] struct {
	// Resource names the queried entity in error details.
	Resource string
	SQL      string
	Args     []any
}

// Bind issues the query on db. A failure to run the query is reported as the
// only slot of the returned sequence.
func (q Query[T]) Bind(ctx context.Context, db *gorm.DB) stream.Iterator[T] {
	tx := db.WithContext(ctx)
	rows, err := tx.Raw(q.SQL, q.Args...).Rows()
	if err != nil {
		return stream.Fail[T](FromDatabase(err, q.Resource))
	}
	return &rowsIter[T]{db: tx, rows: rows, resource: q.Resource}
}

var _ stream.Descriptor[*gorm.DB, struct{}] = Query[struct{}]{}

// rowsIter walks a cursor and decodes each row with ScanRows. A row that
// fails to decode is a failed slot and the cursor moves on; a cursor error
// is reported once and ends the sequence.
type rowsIter[T any] struct {
	db       *gorm.DB
	rows     *sql.Rows
	resource string
	done     bool
}

func (it *rowsIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.done {
		return zero, false, nil
	}
	if err := ctx.Err(); err != nil {
		it.finish()
		return zero, false, FromDatabase(err, it.resource)
	}

	if !it.rows.Next() {
		err := it.rows.Err()
		it.finish()
		if err != nil {
			return zero, false, FromDatabase(err, it.resource)
		}
		return zero, false, nil
	}

	var v T
	if err := it.db.ScanRows(it.rows, &v); err != nil {
		return zero, false, FromDatabase(err, it.resource)
	}
	return v, true, nil
}

func (it *rowsIter[T]) finish() {
	it.done = true
	_ = it.rows.Close()
}

func (it *rowsIter[T]) Close() error {
	if it.done {
		return nil
	}
	it.done = true
	return it.rows.Close()
}
