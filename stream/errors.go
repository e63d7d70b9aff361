package stream

import (
	"errors"
	"net/http"

	apperrors "github.com/kbukum/streamkit/errors"
)

// Kind identifies which stage of the stream produced an Error.
type Kind int

const (
	// KindSource marks a failure reported by the inner sequence (backend fetch,
	// row decoding, cancellation).
	KindSource Kind = iota + 1
	// KindEncoding marks a failure serializing an item or label.
	KindEncoding
	// KindDecoding marks malformed binary input.
	KindDecoding
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindEncoding:
		return "encoding"
	case KindDecoding:
		return "decoding"
	default:
		return "unknown"
	}
}

// Error is the single error type every encoder reports. Kind is preserved
// end to end so the HTTP boundary can pick the status and body.
type Error struct {
	Kind Kind
	Err  error
}

// Error delegates to the wrapped cause.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the error to an HTTP status. Source errors use the
// backend's own mapping: an *apperrors.AppError status, or any cause exposing
// StatusCode() int. Everything else is a 500.
func (e *Error) StatusCode() int {
	if e.Kind != KindSource {
		return http.StatusInternalServerError
	}
	if appErr, ok := apperrors.AsAppError(e.Err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	var coded interface{ StatusCode() int }
	if errors.As(e.Err, &coded) {
		return coded.StatusCode()
	}
	return http.StatusInternalServerError
}

// AppError converts the error to an AppError carrying a machine-readable code.
func (e *Error) AppError() *apperrors.AppError {
	switch e.Kind {
	case KindEncoding:
		return apperrors.Encoding(e.Err)
	case KindDecoding:
		return apperrors.Decoding(e.Err)
	default:
		return apperrors.Wrap(e.Err)
	}
}

// SourceError wraps a failure reported by an inner sequence. An error that
// already carries a Kind is returned unchanged.
func SourceError(err error) *Error {
	if se, ok := AsError(err); ok {
		return se
	}
	return &Error{Kind: KindSource, Err: err}
}

// EncodingError wraps a serialization failure.
func EncodingError(err error) *Error {
	return &Error{Kind: KindEncoding, Err: err}
}

// DecodingError wraps a malformed-input failure.
func DecodingError(err error) *Error {
	return &Error{Kind: KindDecoding, Err: err}
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	se, ok := AsError(err)
	return ok && se.Kind == kind
}
