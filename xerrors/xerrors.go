// Package xerrors implements the error taxonomy as a single tagged-union
// error type: per-class inheritance replaced by one kind-carrying struct
// with private fields, constructor validation, accessor methods, and an
// Unwrap/As pair.
package xerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into the taxonomy.
type Kind string

const (
	KindNetwork Kind = "network"
	KindTimeout Kind = "timeout"
	KindRateLimit Kind = "rate_limit"
	KindServer Kind = "server"
	KindAuthentication Kind = "authentication"
	KindValidation Kind = "validation"
	KindStream Kind = "stream"
	KindCircuitBreakerOpen Kind = "circuit_breaker_open"
	KindToolConversion Kind = "tool_conversion"
	KindMessageParse Kind = "message_parse"
)

// retryableByKind gives each Kind its default retryable value.
// CircuitBreakerOpen is marked retryable here (the caller may retry
// later, just not now) though the handler never auto-retries it.
var retryableByKind = map[Kind]bool{
	KindNetwork: true,
	KindTimeout: true,
	KindRateLimit: true,
	KindServer: true,
	KindAuthentication: false,
	KindValidation: false,
	KindStream: false,
	KindCircuitBreakerOpen: true,
	KindToolConversion: false,
	KindMessageParse: false,
}

// Error is the module-wide error type. All fields are unexported and read
// via accessor methods; instances are built with New, Newf, or Wrap.
type Error struct {
	kind Kind
	retryable bool
	statusCode int
	requestID string
	retryAfter string // raw retry-after value, RateLimit kind only
	recoveryTime string // raw recovery deadline, CircuitBreakerOpen kind only
	message string
	cause error
}

// New constructs an Error of the given kind. kind must be non-empty.
func New(kind Kind, message string) *Error {
	if kind == "" {
		panic("xerrors: kind is required")
	}
	retryable, ok := retryableByKind[kind]
	if !ok {
		retryable = false
	}
	return &Error{kind: kind, retryable: retryable, message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, message string) *Error {
	e := New(kind, message)
	e.cause = cause
	return e
}

func (e *Error) Kind() Kind { return e.kind }
func (e *Error) Retryable() bool { return e.retryable }
func (e *Error) StatusCode() int { return e.statusCode }
func (e *Error) RequestID() string { return e.requestID }
func (e *Error) RetryAfter() string { return e.retryAfter }
func (e *Error) RecoveryTime() string { return e.recoveryTime }
func (e *Error) Message() string { return e.message }
func (e *Error) Unwrap() error { return e.cause }

// WithStatusCode sets the HTTP status code and returns e for chaining.
func (e *Error) WithStatusCode(code int) *Error { e.statusCode = code; return e }

// WithRequestID sets the correlated request id and returns e for chaining.
func (e *Error) WithRequestID(id string) *Error { e.requestID = id; return e }

// WithRetryAfter sets the raw retry-after value and returns e for chaining.
func (e *Error) WithRetryAfter(v string) *Error { e.retryAfter = v; return e }

// WithRecoveryTime sets the raw circuit-breaker recovery deadline and
// returns e for chaining.
func (e *Error) WithRecoveryTime(v string) *Error { e.recoveryTime = v; return e }

// WithRetryable overrides the kind's default retryability and returns e for
// chaining.
func (e *Error) WithRetryable(r bool) *Error { e.retryable = r; return e }

func (e *Error) Error() string {
	status := ""
	if e.statusCode > 0 {
		status = fmt.Sprintf(" status=%d", e.statusCode)
	}
	req := ""
	if e.requestID != "" {
		req = fmt.Sprintf(" request=%s", e.requestID)
	}
	msg := e.message
	if msg == "" && e.cause != nil {
		msg = e.cause.Error()
	}
	return fmt.Sprintf("%s:%s%s %s", e.kind, status, req, msg)
}

// As returns the first *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryableStatusCode reports whether code is in the default retryable
// set {429, 500, 502, 503, 504}.
func IsRetryableStatusCode(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
