package errors

// ErrorCode is a machine-readable error code carried in responses and logs.
type ErrorCode string

// Availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the caller went away before the work finished.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Request errors
const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Internal errors
const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeEncoding indicates an item or label could not be serialized.
	ErrCodeEncoding ErrorCode = "ENCODING_ERROR"
	// ErrCodeDecoding indicates binary input was malformed.
	ErrCodeDecoding ErrorCode = "DECODING_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeDatabaseError:      true,
}

// IsRetryableCode reports whether the code indicates a retryable failure.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
