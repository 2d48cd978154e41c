package circuit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfazed-dev/a2ui-adapter/circuit"
	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

func TestOpensAfterFailureThreshold(t *testing.T) {
	b := circuit.New(circuit.Strict())
	for i := 0; i < 2; i++ {
		b.RecordFailure()
		assert.Equal(t, circuit.Closed, b.State())
	}
	b.RecordFailure()
	assert.Equal(t, circuit.Open, b.State())
}

func TestOpenRejectsUntilRecoveryTimeout(t *testing.T) {
	b := circuit.New(circuit.Config{FailureThreshold: 1, RecoveryTimeout: 20 * time.Millisecond, HalfOpenSuccessThreshold: 1})
	b.RecordFailure()
	require.Equal(t, circuit.Open, b.State())

	err := b.CheckState()
	require.Error(t, err)
	xe, ok := xerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindCircuitBreakerOpen, xe.Kind())

	time.Sleep(25 * time.Millisecond)
	assert.True(t, b.AllowsRequest())
	assert.Equal(t, circuit.HalfOpen, b.State())
}

func TestHalfOpenAdmitsOnlyOneProbeAtATime(t *testing.T) {
	b := circuit.New(circuit.Config{FailureThreshold: 1, RecoveryTimeout: time.Millisecond, HalfOpenSuccessThreshold: 2})
	b.RecordFailure()
	time.Sleep(2 * time.Millisecond)
	assert.True(t, b.AllowsRequest())
	assert.False(t, b.AllowsRequest())
}

func TestHalfOpenSuccessThresholdOneClosesOnFirstSuccess(t *testing.T) {
	b := circuit.New(circuit.Config{FailureThreshold: 1, RecoveryTimeout: time.Millisecond, HalfOpenSuccessThreshold: 1})
	b.RecordFailure()
	time.Sleep(2 * time.Millisecond)
	require.True(t, b.AllowsRequest())
	b.RecordSuccess()
	assert.Equal(t, circuit.Closed, b.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := circuit.New(circuit.Config{FailureThreshold: 1, RecoveryTimeout: time.Millisecond, HalfOpenSuccessThreshold: 2})
	b.RecordFailure()
	time.Sleep(2 * time.Millisecond)
	require.True(t, b.AllowsRequest())
	b.RecordFailure()
	assert.Equal(t, circuit.Open, b.State())
}

func TestSuccessResetsClosedFailureCounter(t *testing.T) {
	b := circuit.New(circuit.Defaults())
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, circuit.Closed, b.State())
}

func TestStateChangeCallbackFiresOnTransitionOnly(t *testing.T) {
	var transitions []string
	cfg := circuit.Config{FailureThreshold: 1, RecoveryTimeout: time.Millisecond, HalfOpenSuccessThreshold: 1,
		OnStateChange: func(prev, next circuit.State, failureCount int) {
			transitions = append(transitions, prev.String()+"->"+next.String())
		},
	}
	b := circuit.New(cfg)
	b.RecordFailure()
	time.Sleep(2 * time.Millisecond)
	b.AllowsRequest()
	b.RecordSuccess()

	require.Len(t, transitions, 3)
	assert.Equal(t, "closed->open", transitions[0])
	assert.Equal(t, "open->half_open", transitions[1])
	assert.Equal(t, "half_open->closed", transitions[2])
}

func TestPresetsProgressivelyStricter(t *testing.T) {
	assert.Less(t, circuit.HighAvailability().FailureThreshold, circuit.Defaults().FailureThreshold)
	assert.Less(t, circuit.HighAvailability().RecoveryTimeout, circuit.Defaults().RecoveryTimeout)
}
