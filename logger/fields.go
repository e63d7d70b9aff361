package logger

import (
	"time"
)

// Standard field keys.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
	FieldRequestID  = "request_id"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldErrorKind  = "error_kind"
	FieldErrorCode  = "error_code"
	FieldDuration   = "duration_ms"
	FieldRoute      = "route"
	FieldChunks     = "chunks"
	FieldBytes      = "bytes"
	FieldStatus     = "status"
	FieldEntryLabel = "label"
)

// Fields builds a field map from alternating key-value pairs.
//
//	logger.Info("stream finished", logger.Fields("route", "/api/events", "chunks", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
