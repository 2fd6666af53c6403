package errors

import (
	"errors"
	"fmt"
)

// Kind classifies errors by where in the pipeline they occur and whether
// they are recoverable.
type Kind string

const (
	KindAuth      Kind = "auth"       // bad/expired session, aborts the run
	KindFetch     Kind = "fetch"      // page-level fetch failure
	KindRateLimit Kind = "rate_limit" // 429, retried with backoff
	KindNetwork   Kind = "network"    // transport failure
	KindNotFound  Kind = "not_found"  // 404, deleted post
	KindPrivate   Kind = "private"    // content access denied
	KindParsing   Kind = "parsing"    // malformed API response
	KindWrite     Kind = "write"      // local disk failure
	KindArchive   Kind = "archive"    // backup packaging failure
	KindUnknown   Kind = "unknown"
)

// Error is an error with pipeline classification and, for HTTP-originated
// failures, the status code.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Wrapped error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a classification.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: err}
}

// WithCode attaches an HTTP status code.
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// KindOf returns the Kind of err, or KindUnknown when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether an error of the given kind is worth retrying.
// Auth, not-found, private and parsing failures will not change on retry.
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindNetwork, KindRateLimit, KindFetch:
		return true
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

// FromStatusCode maps an HTTP status to the error kind the pipeline
// recovers from at the matching granularity.
func FromStatusCode(statusCode int) Kind {
	switch statusCode {
	case 401:
		return KindAuth
	case 403:
		return KindPrivate
	case 404:
		return KindNotFound
	case 429:
		return KindRateLimit
	default:
		if statusCode >= 500 {
			return KindNetwork
		}
		return KindUnknown
	}
}
