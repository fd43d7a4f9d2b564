package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/cache"
)

func TestNewEntry_RejectsNonPositiveTTL(t *testing.T) {
	_, err := cache.NewEntry("k", nil, time.Now(), 0, time.Hour)
	require.ErrorIs(t, err, cache.ErrInvalidTTL)
}

func TestNewEntry_HardTTLNeverBelowTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e, err := cache.NewEntry("k", []byte("x"), now, 10*time.Minute, time.Minute)
	require.NoError(t, err)
	require.True(t, e.ExpiresAt.After(e.FetchedAt))
	require.Equal(t, e.ExpiresAt, e.HardExpiresAt)
}

func TestClassify_MonotonicFreshStaleAbsent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e, err := cache.NewEntry("k", []byte("x"), now, 5*time.Minute, 20*time.Minute)
	require.NoError(t, err)

	prev := cache.Fresh
	order := map[cache.State]int{cache.Fresh: 0, cache.Stale: 1, cache.Absent: 2}
	for step := time.Duration(0); step <= 30*time.Minute; step += 30 * time.Second {
		st := cache.Classify(e, now.Add(step))
		require.GreaterOrEqual(t, order[st], order[prev], "state reverted at +%s", step)
		prev = st
	}

	require.Equal(t, cache.Fresh, cache.Classify(e, now.Add(5*time.Minute-time.Nanosecond)))
	require.Equal(t, cache.Stale, cache.Classify(e, now.Add(5*time.Minute)))
	require.Equal(t, cache.Stale, cache.Classify(e, now.Add(20*time.Minute-time.Nanosecond)))
	require.Equal(t, cache.Absent, cache.Classify(e, now.Add(20*time.Minute)))
	require.Equal(t, cache.Absent, cache.Classify(nil, now))
}
