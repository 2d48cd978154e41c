// Package metrics implements a broadcast event bus plus a rolling-percentile
// aggregate. The event shape is a tagged union with a private base struct
// carrying the common discriminant/timestamp/request-id fields behind
// accessor methods, constructed through a shared newBase helper.
package metrics

import "time"

// Kind discriminates the Metrics Collector's event variants.
type Kind string

const (
	KindRequestStart Kind = "request_start"
	KindRequestSuccess Kind = "request_success"
	KindRequestFailure Kind = "request_failure"
	KindRetryAttempt Kind = "retry_attempt"
	KindRateLimit Kind = "rate_limit"
	KindCircuitBreakerStateChange Kind = "circuit_breaker_state_change"
	KindStreamInactivity Kind = "stream_inactivity"
	KindLatency Kind = "latency"
)

// Event is the tagged union the bus broadcasts. Every variant carries a
// timestamp and an optional request id.
type Event interface {
	Type() Kind
	Timestamp() time.Time
	RequestID() string
}

// base is embedded by every concrete event type and supplies the common
// accessor methods.
type base struct {
	kind Kind
	timestamp time.Time
	requestID string
}

func newBase(kind Kind, requestID string) base {
	return base{kind: kind, timestamp: time.Now(), requestID: requestID}
}

func (b base) Type() Kind { return b.kind }
func (b base) Timestamp() time.Time { return b.timestamp }
func (b base) RequestID() string { return b.requestID }

// RequestStart is emitted when a request begins.
type RequestStart struct {
	base
	Endpoint string
	Model string
}

// NewRequestStart constructs a RequestStart event.
func NewRequestStart(requestID, endpoint, model string) RequestStart {
	return RequestStart{base: newBase(KindRequestStart, requestID), Endpoint: endpoint, Model: model}
}

// RequestSuccess is emitted when a request completes successfully.
type RequestSuccess struct {
	base
	DurationMs int64
	TotalRetries int
	FirstTokenMs int64
	TokensReceived int64
}

// NewRequestSuccess constructs a RequestSuccess event.
func NewRequestSuccess(requestID string, duration time.Duration, totalRetries int, firstToken time.Duration, tokensReceived int64) RequestSuccess {
	return RequestSuccess{
		base: newBase(KindRequestSuccess, requestID),
		DurationMs: duration.Milliseconds(),
		TotalRetries: totalRetries,
		FirstTokenMs: firstToken.Milliseconds(),
		TokensReceived: tokensReceived,
	}
}

// RequestFailure is emitted when a request terminates with an error.
type RequestFailure struct {
	base
	DurationMs int64
	ErrorType string
	ErrorMessage string
	StatusCode int
	TotalRetries int
	IsRetryable bool
}

// NewRequestFailure constructs a RequestFailure event.
func NewRequestFailure(requestID string, duration time.Duration, errorType, errorMessage string, statusCode, totalRetries int, isRetryable bool) RequestFailure {
	return RequestFailure{
		base: newBase(KindRequestFailure, requestID),
		DurationMs: duration.Milliseconds(),
		ErrorType: errorType,
		ErrorMessage: errorMessage,
		StatusCode: statusCode,
		TotalRetries: totalRetries,
		IsRetryable: isRetryable,
	}
}

// RetryAttempt is emitted before each retry sleep.
type RetryAttempt struct {
	base
	Attempt int
	MaxAttempts int
	DelayMs int64
	Reason string
	StatusCode int
}

// NewRetryAttempt constructs a RetryAttempt event.
func NewRetryAttempt(requestID string, attempt, maxAttempts int, delay time.Duration, reason string, statusCode int) RetryAttempt {
	return RetryAttempt{
		base: newBase(KindRetryAttempt, requestID),
		Attempt: attempt,
		MaxAttempts: maxAttempts,
		DelayMs: delay.Milliseconds(),
		Reason: reason,
		StatusCode: statusCode,
	}
}

// RateLimit is emitted every time the rate limiter enters cooldown.
type RateLimit struct {
	base
	RetryAfterMs int64
	RetryAfterHeader string
}

// NewRateLimit constructs a RateLimit event.
func NewRateLimit(requestID string, retryAfter time.Duration, retryAfterHeader string) RateLimit {
	return RateLimit{base: newBase(KindRateLimit, requestID), RetryAfterMs: retryAfter.Milliseconds(), RetryAfterHeader: retryAfterHeader}
}

// CircuitBreakerStateChange is emitted on every circuit-breaker transition.
type CircuitBreakerStateChange struct {
	base
	CircuitName string
	PreviousState string
	NewState string
	FailureCount int
}

// NewCircuitBreakerStateChange constructs a CircuitBreakerStateChange event.
func NewCircuitBreakerStateChange(requestID, circuitName, previousState, newState string, failureCount int) CircuitBreakerStateChange {
	return CircuitBreakerStateChange{
		base: newBase(KindCircuitBreakerStateChange, requestID),
		CircuitName: circuitName,
		PreviousState: previousState,
		NewState: newState,
		FailureCount: failureCount,
	}
}

// StreamInactivity is emitted when the stream watchdog fires.
type StreamInactivity struct {
	base
	TimeoutMs int64
	LastActivityMs int64
}

// NewStreamInactivity constructs a StreamInactivity event.
func NewStreamInactivity(requestID string, timeout, lastActivity time.Duration) StreamInactivity {
	return StreamInactivity{base: newBase(KindStreamInactivity, requestID), TimeoutMs: timeout.Milliseconds(), LastActivityMs: lastActivity.Milliseconds()}
}

// Latency is a generic timing sample for any named operation; Latency
// events are also the source of the aggregate's rolling percentile buffer.
type Latency struct {
	base
	Operation string
	DurationMs int64
	Metadata map[string]any
}

// NewLatency constructs a Latency event.
func NewLatency(requestID, operation string, duration time.Duration, metadata map[string]any) Latency {
	return Latency{base: newBase(KindLatency, requestID), Operation: operation, DurationMs: duration.Milliseconds(), Metadata: metadata}
}
