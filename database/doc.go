// Package database provides the GORM-backed resource behind streamed
// responses: a pooled connection with retry on open, health checks, and
// handles that stream queries can bind to.
//
// A Query describes raw SQL whose rows decode into a Go type. Binding it to a
// handle issues the query immediately and yields rows one at a time:
//
//	h := db.Pool()
//	rows := stream.Own(ctx, h, database.Query[Event]{
//	    Resource: "event",
//	    SQL:      "SELECT id, category, name FROM events ORDER BY id",
//	})
//	body := stream.NewArrayEncoder[Event](rows)
//
// Acquire pins a single connection instead. Several queries bound in turn to
// an acquired handle share that connection, which returns to the pool once
// every bound sequence and the caller have released it.
//
// Database failures are converted to AppErrors by FromDatabase, so a stream
// source error carries the status a handler should respond with.
package database
