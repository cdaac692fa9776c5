package errors

import (
	"errors"
	"fmt"
)

// Kind classifies failures along the boundaries the run cares about:
// whether the whole run must abort or a single step/URL degrades.
type Kind string

const (
	KindSessionSetup    Kind = "session_setup"
	KindElementNotFound Kind = "element_not_found"
	KindTransport       Kind = "transport"
	KindFilesystem      Kind = "filesystem"
	KindRateLimit       Kind = "rate_limit"
	KindUnknown         Kind = "unknown"
)

// Error carries a failure kind plus the HTTP status code when one applies.
type Error struct {
	Kind    Kind
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// New creates a typed error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithCode creates a typed error carrying an HTTP status code.
func WithCode(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Message: message, Code: code}
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsRetryable reports whether retrying the failed operation can help.
// Element lookups and filesystem writes fail the same way on a retry;
// transport and rate-limit failures are transient.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindTransport, KindRateLimit:
		return e.Code == 0 || IsRetryableStatusCode(e.Code)
	default:
		return false
	}
}

// IsRetryableStatusCode reports whether an HTTP status indicates a
// transient condition.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error, no response
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
