// Package ratelimit implements a local token bucket that also reacts to
// server 429s by entering a cooldown until a parsed retry-after elapses.
// The token bucket itself is golang.org/x/time/rate (the same
// rate.NewLimiter/WaitN idiom used for outbound admission control);
// cooldown state layers FIFO-queue-plus-deadline semantics on top, in
// place of a throughput-adaptive scheme.
package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config is the immutable parameter set for a Limiter.
type Config struct {
	// RefillRate is the steady-state token refill rate.
	RefillRate rate.Limit
	// Capacity is the maximum burst / bucket size.
	Capacity int
	// OnRateLimit is invoked (if non-nil) every time the limiter enters
	// cooldown, carrying the parsed retry-after duration — the hook the
	// Metrics Collector's RateLimit event attaches to.
	OnRateLimit func(retryAfter time.Duration)
}

// DefaultConfig is a reasonable process-local default: 10 requests/second,
// burst of 10.
func DefaultConfig() Config {
	return Config{RefillRate: 10, Capacity: 10}
}

// Limiter enforces Config's token bucket and cooldown. The zero value is
// not usable; construct with New.
type Limiter struct {
	cfg Config
	bucket *rate.Limiter
	mu sync.Mutex
	cooldownUntil time.Time
}

// New constructs a Limiter from cfg.
func New(cfg Config) *Limiter {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 1
	}
	return &Limiter{
		cfg: cfg,
		bucket: rate.NewLimiter(cfg.RefillRate, capacity),
	}
}

// Execute acquires a token — waiting out any active cooldown first, then
// blocking in the bucket's FIFO admission order — and then runs fn. If ctx
// is canceled while waiting, Execute returns ctx.Err() without running fn
// and without disturbing any other waiter (the cancellation
// clause: x/time/rate releases a canceled waiter's reservation so it does
// not consume a token on behalf of no one).
func (l *Limiter) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.waitForCooldown(ctx); err != nil {
		return err
	}
	if err := l.bucket.WaitN(ctx, 1); err != nil {
		return err
	}
	return fn(ctx)
}

func (l *Limiter) waitForCooldown(ctx context.Context) error {
	l.mu.Lock()
	until := l.cooldownUntil
	l.mu.Unlock()

	if until.IsZero() {
		return nil
	}
	d := time.Until(until)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RecordRateLimit is called with the server's response status and parsed
// retry-after. Non-429 statuses are a no-op; a 429 sets (or extends) the
// cooldown deadline and fires OnRateLimit.
func (l *Limiter) RecordRateLimit(statusCode int, retryAfter *time.Duration) {
	if statusCode != 429 {
		return
	}
	wait := time.Duration(0)
	if retryAfter != nil {
		wait = *retryAfter
	}
	l.mu.Lock()
	l.cooldownUntil = time.Now().Add(wait)
	cb := l.cfg.OnRateLimit
	l.mu.Unlock()

	if cb != nil {
		cb(wait)
	}
}

// ParseRetryAfter parses an HTTP Retry-After header value. Only integer
// seconds are accepted (HTTP-date form is rejected); empty, non-numeric,
// or negative input returns nil.
func ParseRetryAfter(headerValue string) *time.Duration {
	v := strings.TrimSpace(headerValue)
	if v == "" {
		return nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return nil
	}
	d := time.Duration(seconds) * time.Second
	return &d
}
