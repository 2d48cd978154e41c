package ratelimit_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfazed-dev/a2ui-adapter/ratelimit"
)

func TestParseRetryAfterIntegerSeconds(t *testing.T) {
	d := ratelimit.ParseRetryAfter("2")
	require.NotNil(t, d)
	assert.Equal(t, 2*time.Second, *d)
}

func TestParseRetryAfterRejectsNonNumeric(t *testing.T) {
	assert.Nil(t, ratelimit.ParseRetryAfter(""))
	assert.Nil(t, ratelimit.ParseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Nil(t, ratelimit.ParseRetryAfter("-1"))
}

func TestRecordRateLimitIgnoresNon429(t *testing.T) {
	var fired int32
	l := ratelimit.New(ratelimit.Config{RefillRate: 1000, Capacity: 1000, OnRateLimit: func(time.Duration) {
		atomic.AddInt32(&fired, 1)
	}})
	l.RecordRateLimit(500, nil)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestRecordRateLimitEntersCooldownAndDelaysExecute(t *testing.T) {
	var fired int32
	l := ratelimit.New(ratelimit.Config{RefillRate: 1000, Capacity: 1000, OnRateLimit: func(time.Duration) {
		atomic.AddInt32(&fired, 1)
	}})
	retryAfter := 30 * time.Millisecond
	l.RecordRateLimit(429, &retryAfter)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))

	start := time.Now()
	err := l.Execute(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), retryAfter-5*time.Millisecond)
}

func TestExecuteReturnsErrorWhenContextCanceled(t *testing.T) {
	l := ratelimit.New(ratelimit.Config{RefillRate: 1, Capacity: 1})
	// Drain the single burst token.
	require.NoError(t, l.Execute(context.Background(), func(ctx context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Execute(ctx, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}
