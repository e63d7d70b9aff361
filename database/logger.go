package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/streamkit/logger"
)

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	default:
		return gormlogger.Info
	}
}

// queryLogger routes gorm's output through a streamkit logger. Each traced
// statement is also recorded as an event on the span of its context, so the
// queries behind a streamed response show up under that response's span.
type queryLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(log *logger.Logger, slow time.Duration, level gormlogger.LogLevel) gormlogger.Interface {
	return &queryLogger{log: log.WithComponent("gorm"), level: level, slow: slow}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.WithContext(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	span := trace.SpanFromContext(ctx)
	if l.level <= gormlogger.Silent && !span.IsRecording() {
		return
	}

	elapsed := time.Since(begin)
	statement, rows := fc()
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)

	if span.IsRecording() {
		attrs := []attribute.KeyValue{
			attribute.String("db.statement", statement),
			attribute.Int64("db.rows", rows),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		}
		if failed {
			attrs = append(attrs, attribute.String("db.error", err.Error()))
		}
		span.AddEvent("db.query", trace.WithAttributes(attrs...))
	}

	fields := logger.Fields("sql", statement, "rows", rows, logger.FieldDuration, elapsed.Milliseconds())
	log := l.log.WithContext(ctx)
	switch {
	case failed && l.level >= gormlogger.Error:
		fields[logger.FieldError] = err.Error()
		log.Error("Query failed", fields)
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		log.Warn("Slow query", fields)
	case l.level >= gormlogger.Info:
		log.Debug("Query", fields)
	}
}
