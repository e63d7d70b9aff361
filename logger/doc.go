// Package logger provides structured logging on top of zerolog.
//
// Loggers carry a service name and optional component tag, take fields as
// maps and pick up the request ID and trace context from a context.Context.
//
//	log := logger.Get("database")
//	log.WithContext(ctx).Info("query bound", logger.Fields("label", "books"))
package logger
