package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/streamkit/errors"
)

// FieldError is a validation failure for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Checker accumulates failures from hand-written checks on values that do
// not live in a tagged struct, such as repeated query parameters.
type Checker struct {
	failed []FieldError
}

// New creates an empty Checker.
func New() *Checker {
	return &Checker{}
}

// Check records message for field unless ok.
func (c *Checker) Check(ok bool, field, message string) *Checker {
	if !ok {
		c.failed = append(c.failed, FieldError{Field: field, Message: message})
	}
	return c
}

// MaxItems bounds the length of a list parameter.
func (c *Checker) MaxItems(field string, n, limit int) *Checker {
	return c.Check(n <= limit, field, fmt.Sprintf("must have at most %d items", limit))
}

// EachMaxLength bounds every element of a list parameter, reporting the
// first offender as field[i].
func (c *Checker) EachMaxLength(field string, values []string, limit int) *Checker {
	for i, v := range values {
		if len(v) > limit {
			return c.Check(false, fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("must be %d characters or less", limit))
		}
	}
	return c
}

// Failures returns what has been recorded so far.
func (c *Checker) Failures() []FieldError {
	return c.failed
}

// Err returns a 400 AppError listing every failure, or nil.
func (c *Checker) Err() error {
	if len(c.failed) == 0 {
		return nil
	}
	return toAppError(c.failed)
}

func toAppError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, e := range fields {
		messages[i] = e.Field + ": " + e.Message
	}
	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{"fields": fields}
	return appErr
}
