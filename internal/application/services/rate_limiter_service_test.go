package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/Hafiz-Al-Shams/news-nexus/internal/application/services"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/repositories"
)

func TestRateLimiterService_RedisFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := impl.NewRateLimiterService(repositories.NewRateLimitRedisRepository(rdb), &impl.RateLimiterConfig{
		RequestsPerMinute: 2,
		BurstMultiplier:   1.5,
		Window:            time.Hour,
	}, quietLogger())
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		allowed, remaining, limit, reset, err := svc.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, want, remaining)
		assert.Equal(t, 2, limit)
		assert.True(t, reset.After(time.Now().Add(-time.Second)))
	}
	allowed, remaining, _, _, err := svc.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	allowed, _, _, _, err = svc.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterService_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.SetError("ERR backend down")

	svc := impl.NewRateLimiterService(repositories.NewRateLimitRedisRepository(rdb), nil, quietLogger())
	allowed, _, limit, _, err := svc.Allow(context.Background(), "10.0.0.1")
	require.Error(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 120, limit)
}

func TestLocalRateLimiter_BurstThenReject(t *testing.T) {
	l := impl.NewLocalRateLimiter(&impl.RateLimiterConfig{RequestsPerMinute: 60, BurstMultiplier: 1})
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		allowed, _, _, _, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i+1)
	}
	allowed, remaining, limit, reset, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.Equal(t, 60, limit)
	assert.True(t, reset.After(time.Now()))

	allowed, _, _, _, err = l.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, allowed)
}
