package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	errDown     = errors.New("service unavailable")
	errBadInput = errors.New("bad request")
)

func onlyDown(err error) bool { return errors.Is(err, errDown) }

func TestBreaker_OpensAfterConsecutiveTrippingFailures(t *testing.T) {
	b := NewBreaker(3, time.Second, onlyDown)
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Execute(func() error { return errDown }), errDown)
	}
	called := false
	err := b.Execute(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.False(t, called)
	require.Equal(t, "open", b.State())
}

func TestBreaker_NonTrippingErrorsResetCount(t *testing.T) {
	b := NewBreaker(2, time.Second, onlyDown)
	_ = b.Execute(func() error { return errDown })
	require.ErrorIs(t, b.Execute(func() error { return errBadInput }), errBadInput)
	_ = b.Execute(func() error { return errDown })
	require.Equal(t, "closed", b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Second, nil)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errDown })
	require.ErrorIs(t, b.Execute(func() error { return nil }), ErrCircuitOpen)

	now = now.Add(2 * time.Second)
	require.NoError(t, b.Execute(func() error { return nil }))
	require.Equal(t, "closed", b.State())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Second, nil)
	b.now = func() time.Time { return now }
	_ = b.Execute(func() error { return errDown })

	now = now.Add(2 * time.Second)
	require.ErrorIs(t, b.Execute(func() error { return errDown }), errDown)
	require.ErrorIs(t, b.Execute(func() error { return nil }), ErrCircuitOpen)
}

func TestBreaker_DisabledPassesThrough(t *testing.T) {
	b := NewBreaker(0, time.Second, nil)
	for i := 0; i < 10; i++ {
		require.ErrorIs(t, b.Execute(func() error { return errDown }), errDown)
	}
	var nilBreaker *Breaker
	require.NoError(t, nilBreaker.Execute(func() error { return nil }))
}
