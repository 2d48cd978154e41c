// Package circuit implements a three-state (closed/open/half-open)
// failure-isolation device, standard-library only (see DESIGN.md). State
// transitions follow a mutex-guarded idiom throughout: a short critical
// section computes the next state and the callback to fire, the lock is
// released, and only then is the OnStateChange hook invoked.
package circuit

import (
	"sync"
	"time"

	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

// State is one of the three circuit states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config is the immutable parameter set for a Breaker.
type Config struct {
	Name string
	FailureThreshold int
	RecoveryTimeout time.Duration
	HalfOpenSuccessThreshold int
	// OnStateChange is invoked (if non-nil) on every state transition,
	// carrying the previous and new state and the failure count at the
	// moment of transition — the hook the Metrics Collector's
	// CircuitBreakerStateChange event attaches to.
	OnStateChange func(previous, next State, failureCount int)
}

// WithName returns a copy of c with Name replaced.
func (c Config) WithName(name string) Config { c.Name = name; return c }

// WithFailureThreshold returns a copy of c with FailureThreshold replaced.
func (c Config) WithFailureThreshold(n int) Config { c.FailureThreshold = n; return c }

// WithRecoveryTimeout returns a copy of c with RecoveryTimeout replaced.
func (c Config) WithRecoveryTimeout(d time.Duration) Config { c.RecoveryTimeout = d; return c }

// WithHalfOpenSuccessThreshold returns a copy of c with
// HalfOpenSuccessThreshold replaced.
func (c Config) WithHalfOpenSuccessThreshold(n int) Config {
	c.HalfOpenSuccessThreshold = n
	return c
}

// Breaker is a mutex-guarded three-state circuit breaker. The zero value is
// not usable; construct with New.
type Breaker struct {
	cfg Config

	mu sync.Mutex
	state State
	consecutiveFailures int
	halfOpenSuccesses int
	halfOpenProbeInFlight bool
	openedAt time.Time
}

// New constructs a Breaker in the Closed state.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, state: Closed}
}

// CheckState returns a *xerrors.Error of kind CircuitBreakerOpen (carrying
// the remaining recovery time) when the breaker currently refuses requests;
// otherwise it returns nil. Calling CheckState may itself trigger the
// Open → HalfOpen transition once RecoveryTimeout has elapsed, on the next
// checkState/allowsRequest inquiry.
func (b *Breaker) CheckState() error {
	if b.AllowsRequest() {
		return nil
	}
	b.mu.Lock()
	remaining := time.Until(b.openedAt.Add(b.cfg.RecoveryTimeout))
	b.mu.Unlock()
	return xerrors.New(xerrors.KindCircuitBreakerOpen, "circuit breaker is open").
		WithRecoveryTime(remaining.String())
}

// AllowsRequest is CheckState's non-throwing form: it reports whether a
// request may proceed right now, performing the same Open → HalfOpen
// transition as a side effect, and admits at most one concurrent probe
// while HalfOpen.
func (b *Breaker) AllowsRequest() bool {
	b.mu.Lock()

	var allowed bool
	var transitioned bool
	var previous State

	switch b.state {
	case Closed:
		allowed = true
	case Open:
		if time.Since(b.openedAt) < b.cfg.RecoveryTimeout {
			allowed = false
		} else {
			previous = b.state
			b.state = HalfOpen
			transitioned = true
			b.halfOpenProbeInFlight = true
			allowed = true
		}
	case HalfOpen:
		if b.halfOpenProbeInFlight {
			allowed = false
		} else {
			b.halfOpenProbeInFlight = true
			allowed = true
		}
	}

	failureCount := b.consecutiveFailures
	cb := b.cfg.OnStateChange
	b.mu.Unlock()

	if transitioned && cb != nil {
		cb(previous, HalfOpen, failureCount)
	}
	return allowed
}

// RecordSuccess records a successful call. In Closed it resets the failure
// counter. In HalfOpen it counts toward HalfOpenSuccessThreshold and, once
// reached, transitions to Closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()

	var transitioned bool

	switch b.state {
	case Closed:
		b.consecutiveFailures = 0
	case HalfOpen:
		b.halfOpenProbeInFlight = false
		b.halfOpenSuccesses++
		threshold := b.cfg.HalfOpenSuccessThreshold
		if threshold < 1 {
			threshold = 1
		}
		if b.halfOpenSuccesses >= threshold {
			b.state = Closed
			transitioned = true
			b.consecutiveFailures = 0
			b.halfOpenSuccesses = 0
		}
	}

	failureCount := b.consecutiveFailures
	cb := b.cfg.OnStateChange
	b.mu.Unlock()

	if transitioned && cb != nil {
		cb(HalfOpen, Closed, failureCount)
	}
}

// RecordFailure records a failed call. In Closed it increments the failure
// counter, transitioning to Open once it reaches FailureThreshold. In
// HalfOpen any failure re-arms RecoveryTimeout and transitions back to
// Open.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()

	var transitioned bool
	var previous State

	switch b.state {
	case Closed:
		b.consecutiveFailures++
		threshold := b.cfg.FailureThreshold
		if threshold < 1 {
			threshold = 1
		}
		if b.consecutiveFailures >= threshold {
			previous = Closed
			b.state = Open
			transitioned = true
			b.openedAt = time.Now()
		}
	case HalfOpen:
		b.halfOpenProbeInFlight = false
		b.halfOpenSuccesses = 0
		previous = HalfOpen
		b.state = Open
		transitioned = true
		b.openedAt = time.Now()
	case Open:
		b.openedAt = time.Now()
	}

	failureCount := b.consecutiveFailures
	cb := b.cfg.OnStateChange
	b.mu.Unlock()

	if transitioned && cb != nil {
		cb(previous, Open, failureCount)
	}
}

// Reset returns the breaker to Closed with all counters zeroed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	previous := b.state
	b.state = Closed
	b.consecutiveFailures = 0
	b.halfOpenSuccesses = 0
	b.halfOpenProbeInFlight = false
	cb := b.cfg.OnStateChange
	b.mu.Unlock()

	if previous != Closed && cb != nil {
		cb(previous, Closed, 0)
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
