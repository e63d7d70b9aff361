// Package errors provides the application error type shared by every layer of
// the service: a machine-readable code, a client-safe message, the HTTP status
// to answer with and whether the caller may retry.
package errors
