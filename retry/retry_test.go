package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfazed-dev/a2ui-adapter/retry"
	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

func TestGetDelayNegativeAttemptIsZero(t *testing.T) {
	p := retry.DefaultPolicy()
	assert.Equal(t, time.Duration(0), p.GetDelay(-1))
}

func TestGetDelayZeroJitterIsDeterministic(t *testing.T) {
	p := retry.DefaultPolicy().WithJitterFactor(0)
	assert.Equal(t, p.InitialDelay, p.GetDelay(0))
	assert.Equal(t, p.InitialDelay*2, p.GetDelay(1))
	assert.Equal(t, p.InitialDelay*4, p.GetDelay(2))
}

func TestGetDelayCapsAtMaxDelay(t *testing.T) {
	p := retry.DefaultPolicy().WithJitterFactor(0).WithMaxDelay(3 * time.Second)
	assert.Equal(t, 3*time.Second, p.GetDelay(10))
}

func TestGetDelayConstantWithMultiplierOne(t *testing.T) {
	p := retry.DefaultPolicy().WithJitterFactor(0).WithBackoffMultiplier(1.0)
	assert.Equal(t, p.InitialDelay, p.GetDelay(0))
	assert.Equal(t, p.InitialDelay, p.GetDelay(5))
}

func TestMaxAttemptsZeroMeansNoRetries(t *testing.T) {
	p := retry.DefaultPolicy().WithMaxAttempts(0)
	err := xerrors.New(xerrors.KindNetwork, "boom")
	assert.False(t, p.ShouldRetry(err, 0))
}

func TestShouldRetryHonorsStatusCodeSet(t *testing.T) {
	p := retry.DefaultPolicy()
	err := xerrors.New(xerrors.KindServer, "x").WithStatusCode(503)
	assert.True(t, p.ShouldRetry(err, 0))

	err2 := xerrors.New(xerrors.KindValidation, "x").WithStatusCode(400)
	assert.False(t, p.ShouldRetry(err2, 0))
}

func TestShouldRetryRespectsMaxAttempts(t *testing.T) {
	p := retry.DefaultPolicy().WithMaxAttempts(2)
	err := xerrors.New(xerrors.KindNetwork, "x")
	assert.True(t, p.ShouldRetry(err, 1))
	assert.False(t, p.ShouldRetry(err, 2))
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	p := retry.DefaultPolicy().WithInitialDelay(time.Millisecond).WithJitterFactor(0)
	attempts := 0
	err := retry.Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		attempts++
		if attempts < 2 {
			return xerrors.New(xerrors.KindNetwork, "transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	p := retry.DefaultPolicy().WithMaxAttempts(2).WithInitialDelay(time.Millisecond).WithJitterFactor(0)
	err := retry.Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		return xerrors.New(xerrors.KindNetwork, "always fails")
	})
	require.Error(t, err)
	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	p := retry.DefaultPolicy()
	calls := 0
	err := retry.Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		calls++
		return xerrors.New(xerrors.KindValidation, "bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
