package xerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

func TestNewDefaultsRetryableByKind(t *testing.T) {
	cases := []struct {
		kind      xerrors.Kind
		retryable bool
	}{
		{xerrors.KindNetwork, true},
		{xerrors.KindTimeout, true},
		{xerrors.KindRateLimit, true},
		{xerrors.KindServer, true},
		{xerrors.KindAuthentication, false},
		{xerrors.KindValidation, false},
		{xerrors.KindStream, false},
		{xerrors.KindCircuitBreakerOpen, true},
	}
	for _, tc := range cases {
		e := xerrors.New(tc.kind, "boom")
		assert.Equal(t, tc.retryable, e.Retryable(), tc.kind)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	e := xerrors.Wrap(xerrors.KindNetwork, cause, "request failed")
	require.ErrorIs(t, e, cause)

	var target *xerrors.Error
	require.True(t, errors.As(e, &target))
	assert.Equal(t, xerrors.KindNetwork, target.Kind())
}

func TestAsHelper(t *testing.T) {
	e := xerrors.New(xerrors.KindValidation, "bad field").WithStatusCode(422)
	got, ok := xerrors.As(e)
	require.True(t, ok)
	assert.Equal(t, 422, got.StatusCode())

	_, ok = xerrors.As(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsRetryableStatusCode(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, xerrors.IsRetryableStatusCode(code))
	}
	for _, code := range []int{200, 400, 401, 404} {
		assert.False(t, xerrors.IsRetryableStatusCode(code))
	}
}
