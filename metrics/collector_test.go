package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfazed-dev/a2ui-adapter/metrics"
)

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	c := metrics.New()
	ch1, unsub1 := c.Subscribe()
	ch2, unsub2 := c.Subscribe()
	defer unsub1()
	defer unsub2()

	c.Emit(metrics.NewRequestStart("r1", "/v1/messages", "claude"))

	ev1 := <-ch1
	ev2 := <-ch2
	assert.Equal(t, metrics.KindRequestStart, ev1.Type())
	assert.Equal(t, metrics.KindRequestStart, ev2.Type())
}

func TestLateSubscriberDoesNotReceivePastEvents(t *testing.T) {
	c := metrics.New()
	c.Emit(metrics.NewRequestStart("r1", "/v1/messages", ""))
	ch, unsub := c.Subscribe()
	defer unsub()

	select {
	case <-ch:
		t.Fatal("late subscriber should not see events emitted before Subscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSuccessRate(t *testing.T) {
	c := metrics.New()
	c.Emit(metrics.NewRequestSuccess("r1", 10*time.Millisecond, 0, 0, 0))
	c.Emit(metrics.NewRequestSuccess("r2", 10*time.Millisecond, 0, 0, 0))
	c.Emit(metrics.NewRequestFailure("r3", 10*time.Millisecond, "network", "boom", 0, 0, true))

	snap := c.Snapshot()
	assert.InDelta(t, 66.66, snap.SuccessRate(), 0.1)
}

func TestPercentilesOrdered(t *testing.T) {
	c := metrics.New()
	for i := 1; i <= 100; i++ {
		c.Emit(metrics.NewLatency("r", "op", time.Duration(i)*time.Millisecond, nil))
	}
	snap := c.Snapshot()
	assert.LessOrEqual(t, snap.P50, snap.P95)
	assert.LessOrEqual(t, snap.P95, snap.P99)
}

func TestResetZeroesCounters(t *testing.T) {
	c := metrics.New()
	c.Emit(metrics.NewRequestStart("r1", "e", "m"))
	c.Emit(metrics.NewRequestSuccess("r1", time.Millisecond, 0, 0, 0))
	c.Reset()
	snap := c.Snapshot()
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.Success)
}

func TestDisposeClosesSubscribers(t *testing.T) {
	c := metrics.New()
	ch, _ := c.Subscribe()
	c.Dispose()
	_, open := <-ch
	assert.False(t, open)
	// Further Emit calls are no-ops, not panics.
	require.NotPanics(t, func() { c.Emit(metrics.NewRequestStart("r", "e", "m")) })
}

func TestOverflowDropsRatherThanBlocks(t *testing.T) {
	c := metrics.New()
	ch, unsub := c.Subscribe()
	defer unsub()

	for i := 0; i < 200; i++ {
		c.Emit(metrics.NewLatency("r", "op", time.Millisecond, nil))
	}
	snap := c.Snapshot()
	assert.Greater(t, snap.Dropped, int64(0))
	// Drain so the test doesn't leak a full channel.
	for len(ch) > 0 {
		<-ch
	}
}

func TestAggregationIndependentOfEmission(t *testing.T) {
	c := metrics.New()
	c.SetEmissionEnabled(false)
	ch, unsub := c.Subscribe()
	defer unsub()

	c.Emit(metrics.NewRequestStart("r1", "e", "m"))
	select {
	case <-ch:
		t.Fatal("emission disabled: subscriber should not receive events")
	case <-time.After(10 * time.Millisecond):
	}
	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap.Total)
}
