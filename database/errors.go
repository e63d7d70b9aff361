package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/streamkit/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"driver: bad connection",
	"invalid connection",
	"database is closed",
	"unable to open database",
}

var retryablePatterns = []string{
	"deadlock",
	"database is locked",
	"database table is locked",
	"too many connections",
}

// IsConnectionError checks if a database error is a connection error
// that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	return containsAny(err, connectionPatterns)
}

// IsRetryableError determines if a database error should trigger a retry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return IsConnectionError(err) || containsAny(err, retryablePatterns)
}

func containsAny(err error, patterns []string) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a database error to an AppError, which carries the
// HTTP status a stream source error is reported with.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.Wrap(err)
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, sql.ErrNoRows):
		return apperrors.NotFound(resource, "")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			fmt.Sprintf("A %s with these details already exists.", resource),
			http.StatusConflict).WithCause(err)
	case IsConnectionError(err):
		return apperrors.ServiceUnavailable("database").WithCause(err)
	case IsRetryableError(err):
		return apperrors.New(apperrors.ErrCodeDatabaseError,
			"Database operation failed. Please try again.",
			http.StatusServiceUnavailable).WithCause(err)
	}
	return apperrors.DatabaseError(err).WithDetail("resource", resource)
}
