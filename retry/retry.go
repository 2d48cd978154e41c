// Package retry implements pure computation of whether to retry and how
// long to delay: a Policy value classifies an error via xerrors.Error and
// produces an exponential backoff with jitter, with no knowledge of how
// the retried operation is actually invoked.
package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

// Policy holds the immutable backoff/retry parameters. Zero-value Policy is
// invalid; start from DefaultPolicy.
type Policy struct {
	MaxAttempts int
	InitialDelay time.Duration
	MaxDelay time.Duration
	BackoffMultiplier float64
	JitterFactor float64
	RetryableStatusCodes map[int]bool
}

// DefaultPolicy returns the conservative process-wide default: initial 1s,
// multiplier 2.0, max 30s, jitterFactor 0.1, maxAttempts 3.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		InitialDelay: time.Second,
		MaxDelay: 30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor: 0.1,
	}
}

// WithMaxAttempts returns a copy of p with MaxAttempts replaced.
func (p Policy) WithMaxAttempts(n int) Policy { p.MaxAttempts = n; return p }

// WithInitialDelay returns a copy of p with InitialDelay replaced.
func (p Policy) WithInitialDelay(d time.Duration) Policy { p.InitialDelay = d; return p }

// WithMaxDelay returns a copy of p with MaxDelay replaced.
func (p Policy) WithMaxDelay(d time.Duration) Policy { p.MaxDelay = d; return p }

// WithBackoffMultiplier returns a copy of p with BackoffMultiplier replaced.
func (p Policy) WithBackoffMultiplier(m float64) Policy { p.BackoffMultiplier = m; return p }

// WithJitterFactor returns a copy of p with JitterFactor replaced.
func (p Policy) WithJitterFactor(j float64) Policy { p.JitterFactor = j; return p }

// WithRetryableStatusCodes returns a copy of p with the retryable status
// code set replaced.
func (p Policy) WithRetryableStatusCodes(codes ...int) Policy {
	m := make(map[int]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	p.RetryableStatusCodes = m
	return p
}

// ShouldRetryStatusCode reports whether code is in the configurable
// retryable set, defaulting to {429, 500, 502, 503, 504} when unset.
func (p Policy) ShouldRetryStatusCode(code int) bool {
	if p.RetryableStatusCodes == nil {
		return xerrors.IsRetryableStatusCode(code)
	}
	return p.RetryableStatusCodes[code]
}

// ShouldRetry reports whether err (at the given zero-based attempt number)
// warrants another attempt. attempt < 0 is treated as attempt 0 for the
// purposes of this decision (the delay computed for a negative attempt is
// still zero). MaxAttempts == 0 means no retries ever.
func (p Policy) ShouldRetry(err error, attempt int) bool {
	if p.MaxAttempts <= 0 {
		return false
	}
	if attempt >= p.MaxAttempts {
		return false
	}
	if xe, ok := xerrors.As(err); ok {
		if xe.StatusCode() != 0 {
			return p.ShouldRetryStatusCode(xe.StatusCode())
		}
		return xe.Retryable()
	}
	return false
}

// GetDelay computes the backoff delay for the given zero-based attempt
// number, using the formula:
//
//	delay(attempt) = min(initialDelay * multiplier^attempt, maxDelay) * (1 + jitter)
//
// where jitter is drawn uniformly from [-jitterFactor, +jitterFactor].
// attempt < 0 yields zero delay.
func (p Policy) GetDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	base := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if max := float64(p.MaxDelay); p.MaxDelay > 0 && base > max {
		base = max
	}
	if p.JitterFactor == 0 {
		return time.Duration(base)
	}
	jitter := p.JitterFactor * (rand.Float64()*2 - 1)
	delay := base * (1 + jitter)
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
