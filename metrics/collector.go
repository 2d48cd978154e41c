package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultBufferSize is the default rolling latency-sample window: a bounded
// ring buffer of the last N samples (default 1000).
const DefaultBufferSize = 1000

// subscriberBufferSize bounds each subscriber's channel; the bus drops on
// overflow rather than blocking the producer.
const subscriberBufferSize = 64

// Snapshot is the synchronous statistics snapshot.
type Snapshot struct {
	Total int64
	Active int64
	Success int64
	Failure int64
	Retries int64
	RateLimits int64
	CircuitOpens int64
	StreamInactivity int64
	Dropped int64
	Mean time.Duration
	P50 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// SuccessRate returns 100 * successes / (successes + failures), or 0 when
// there have been no terminal requests yet (the invariant 7).
func (s Snapshot) SuccessRate() float64 {
	total := s.Success + s.Failure
	if total == 0 {
		return 0
	}
	return 100 * float64(s.Success) / float64(total)
}

// Collector is the broadcast bus and rolling aggregate. Emit is lock-free
// with respect to subscribers (it never blocks on a slow reader); aggregate
// updates take a short critical section.
type Collector struct {
	bufferSize int

	subMu sync.RWMutex
	subscribers map[int]chan Event
	nextSubID int
	disposed bool

	aggMu sync.Mutex
	total int64
	active int64
	success int64
	failure int64
	retries int64
	rateLimits int64
	circuitOpens int64
	streamInactivity int64
	dropped int64
	latencies []time.Duration
	latencyHead int
	latencyFilled int

	aggregationEnabled bool
	emissionEnabled bool
}

// New constructs a Collector. Both aggregation and broadcast emission
// default to enabled; toggle independently via SetAggregationEnabled /
// SetEmissionEnabled; neither setting affects the other.
func New() *Collector {
	return NewWithBufferSize(DefaultBufferSize)
}

// NewWithBufferSize constructs a Collector with a non-default rolling
// latency-sample window.
func NewWithBufferSize(bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Collector{
		bufferSize: bufferSize,
		subscribers: make(map[int]chan Event),
		latencies: make([]time.Duration, bufferSize),
		aggregationEnabled: true,
		emissionEnabled: true,
	}
}

// SetAggregationEnabled toggles counter/percentile bookkeeping.
func (c *Collector) SetAggregationEnabled(enabled bool) {
	c.aggMu.Lock()
	c.aggregationEnabled = enabled
	c.aggMu.Unlock()
}

// SetEmissionEnabled toggles whether Emit broadcasts to subscribers.
func (c *Collector) SetEmissionEnabled(enabled bool) {
	c.subMu.Lock()
	c.emissionEnabled = enabled
	c.subMu.Unlock()
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function. The bus does not replay past events to late
// subscribers.
func (c *Collector) Subscribe() (<-chan Event, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan Event, subscriberBufferSize)
	c.subscribers[id] = ch

	unsubscribe := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if existing, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Emit broadcasts ev to all current subscribers (dropping, not blocking, on
// a full subscriber buffer) when emission is enabled, and folds it into the
// aggregate when aggregation is enabled; the two are independent.
func (c *Collector) Emit(ev Event) {
	c.subMu.RLock()
	if c.disposed {
		c.subMu.RUnlock()
		return
	}
	emit := c.emissionEnabled
	if emit {
		for _, ch := range c.subscribers {
			select {
			case ch <- ev:
			default:
				c.aggMu.Lock()
				c.dropped++
				c.aggMu.Unlock()
			}
		}
	}
	c.subMu.RUnlock()

	c.aggregate(ev)
}

func (c *Collector) aggregate(ev Event) {
	c.aggMu.Lock()
	defer c.aggMu.Unlock()
	if !c.aggregationEnabled {
		return
	}

	switch e := ev.(type) {
	case RequestStart:
		c.total++
		c.active++
	case RequestSuccess:
		c.active--
		c.success++
		c.retries += int64(e.TotalRetries)
		c.recordLatencyLocked(time.Duration(e.DurationMs) * time.Millisecond)
	case RequestFailure:
		c.active--
		c.failure++
		c.retries += int64(e.TotalRetries)
		c.recordLatencyLocked(time.Duration(e.DurationMs) * time.Millisecond)
	case RetryAttempt:
		c.retries++
	case RateLimit:
		c.rateLimits++
	case CircuitBreakerStateChange:
		if e.NewState == "open" {
			c.circuitOpens++
		}
	case StreamInactivity:
		c.streamInactivity++
	case Latency:
		c.recordLatencyLocked(time.Duration(e.DurationMs) * time.Millisecond)
	}
}

// recordLatencyLocked must be called with aggMu held.
func (c *Collector) recordLatencyLocked(d time.Duration) {
	c.latencies[c.latencyHead] = d
	c.latencyHead = (c.latencyHead + 1) % c.bufferSize
	if c.latencyFilled < c.bufferSize {
		c.latencyFilled++
	}
}

// Snapshot returns a point-in-time copy of the aggregate, including
// mean/p50/p95/p99 computed from the current rolling buffer contents.
func (c *Collector) Snapshot() Snapshot {
	c.aggMu.Lock()
	defer c.aggMu.Unlock()

	samples := make([]time.Duration, c.latencyFilled)
	copy(samples, c.latencies[:c.latencyFilled])
	mean, p50, p95, p99 := percentiles(samples)

	return Snapshot{
		Total: c.total,
		Active: c.active,
		Success: c.success,
		Failure: c.failure,
		Retries: c.retries,
		RateLimits: c.rateLimits,
		CircuitOpens: c.circuitOpens,
		StreamInactivity: c.streamInactivity,
		Dropped: c.dropped,
		Mean: mean,
		P50: p50,
		P95: p95,
		P99: p99,
	}
}

// Reset zeroes all counters and clears the latency buffer.
func (c *Collector) Reset() {
	c.aggMu.Lock()
	defer c.aggMu.Unlock()
	c.total, c.active, c.success, c.failure = 0, 0, 0, 0
	c.retries, c.rateLimits, c.circuitOpens, c.streamInactivity, c.dropped = 0, 0, 0, 0, 0
	c.latencyHead, c.latencyFilled = 0, 0
}

// Dispose closes the bus: all subscriber channels are closed and further
// Emit calls are no-ops.
func (c *Collector) Dispose() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
}

func percentiles(samples []time.Duration) (mean, p50, p95, p99 time.Duration) {
	if len(samples) == 0 {
		return 0, 0, 0, 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, s := range sorted {
		sum += s
	}
	mean = sum / time.Duration(len(sorted))
	p50 = quantile(sorted, 0.50)
	p95 = quantile(sorted, 0.95)
	p99 = quantile(sorted, 0.99)
	return mean, p50, p95, p99
}

// quantile uses nearest-rank on a pre-sorted slice.
func quantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
