package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/Hafiz-Al-Shams/news-nexus/internal/application/services"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/repositories"
	"github.com/Hafiz-Al-Shams/news-nexus/test/mocks"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	clock   *clock
	backend *mocks.MemoryCache
	store   *repositories.CacheEntryRepository
	quotas  *repositories.QuotaMemoryRepository
	quota   *impl.QuotaService
	metrics *mocks.MetricsRecorderMock
	orch    *impl.Orchestrator
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		clock:   &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		backend: mocks.NewMemoryCache(),
		quotas:  repositories.NewQuotaMemoryRepository(),
		metrics: &mocks.MetricsRecorderMock{},
	}
	logger := quietLogger()
	h.store = repositories.NewCacheEntryRepository(h.backend, 24, logger).WithClock(h.clock.Now)
	h.quota = impl.NewQuotaService(h.quotas, quota.Policy{Window: time.Hour, Location: time.UTC}, h.metrics, logger).WithClock(h.clock.Now)
	h.orch = impl.NewOrchestrator(h.store, h.quota, h.metrics, timeout, logger)
	return h
}

func (h *harness) windowCount(t *testing.T, identity string) int {
	t.Helper()
	c, ok, err := h.quotas.Get(context.Background(), identity)
	require.NoError(t, err)
	if !ok {
		return 0
	}
	return c.WindowCount
}

func request(key string, limits quota.Limits, load ports.LoadFunc) ports.FetchRequest {
	return ports.FetchRequest{Kind: "test", Key: key, Identity: "alice", Limits: limits, TTL: time.Minute, Load: load}
}

func staticLoad(calls *int32, payload string) ports.LoadFunc {
	return func(context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(payload), nil
	}
}

func failingLoad(calls *int32, err error) ports.LoadFunc {
	return func(context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return nil, err
	}
}

var generous = quota.Limits{WindowMax: 100, DailyMax: 1000}

func TestResolve_MissThenFreshHit(t *testing.T) {
	h := newHarness(t, time.Second)
	var calls int32
	ctx := context.Background()

	out, err := h.orch.Resolve(ctx, request("k", generous, staticLoad(&calls, `"v1"`)))
	require.NoError(t, err)
	assert.False(t, out.FromCache)
	assert.Equal(t, `"v1"`, string(out.Payload))
	require.NotNil(t, out.CachedAt)
	assert.Equal(t, h.clock.Now(), *out.CachedAt)
	require.NotNil(t, out.ExpiresAt)
	assert.Equal(t, h.clock.Now().Add(time.Minute), *out.ExpiresAt)
	fetchedAt := *out.CachedAt

	h.clock.Advance(30 * time.Second)
	out, err = h.orch.Resolve(ctx, request("k", generous, staticLoad(&calls, `"v2"`)))
	require.NoError(t, err)
	assert.True(t, out.FromCache)
	assert.False(t, out.Stale)
	assert.Equal(t, `"v1"`, string(out.Payload))
	require.NotNil(t, out.CachedAt)
	assert.Equal(t, fetchedAt, *out.CachedAt)

	assert.EqualValues(t, 1, calls)
	assert.Equal(t, 1, h.windowCount(t, "alice"), "fresh hits are not charged")
	assert.Equal(t, 1, h.metrics.Outcome("test", impl.OutcomeMiss))
	assert.Equal(t, 1, h.metrics.Outcome("test", impl.OutcomeFreshHit))
}

func TestResolve_TechnologyLast24hScenario(t *testing.T) {
	h := newHarness(t, time.Second)
	limits := quota.Limits{WindowMax: 10, DailyMax: 100}
	var calls int32
	req := request("news:newsapi:technology:24h:world:1:30:", limits, staticLoad(&calls, `{"articles":[]}`))

	first, err := h.orch.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, h.windowCount(t, "alice"))

	h.clock.Advance(time.Second)
	second, err := h.orch.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, 1, h.windowCount(t, "alice"))
	assert.EqualValues(t, 1, calls)
}

func TestResolve_ConcurrentMissesShareOneUpstreamCall(t *testing.T) {
	h := newHarness(t, 5*time.Second)
	var calls int32
	release := make(chan struct{})
	load := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte(`"shared"`), nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]*ports.Outcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.orch.Resolve(context.Background(), request("hot", generous, load))
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, `"shared"`, string(results[i].Payload))
	}
}

func TestResolve_StaleServedWhenUpstreamFails(t *testing.T) {
	h := newHarness(t, time.Second)
	var calls int32
	_, err := h.orch.Resolve(context.Background(), request("k", generous, staticLoad(&calls, `"old"`)))
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	out, err := h.orch.Resolve(context.Background(), request("k", generous, failingLoad(&calls, apperr.UpstreamUnavailable("guardian", errors.New("503")))))
	require.NoError(t, err)
	assert.True(t, out.FromCache)
	assert.True(t, out.Stale)
	assert.Equal(t, impl.NoteGenerationFailed, out.Note)
	assert.Equal(t, `"old"`, string(out.Payload))
	require.NotNil(t, out.CachedAt)
	assert.Equal(t, 1, h.metrics.Outcome("test", impl.OutcomeStaleError))
}

func TestResolve_AbsentAndUpstreamFailsKeepsCode(t *testing.T) {
	h := newHarness(t, time.Second)
	var calls int32
	_, err := h.orch.Resolve(context.Background(), request("k", generous, failingLoad(&calls, apperr.RateLimited("newsapi", "slow down", time.Minute))))
	require.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.Equal(t, time.Minute, apperr.RetryAfterOf(err))
}

func TestResolve_UntaggedLoadErrorIsUnknown(t *testing.T) {
	h := newHarness(t, time.Second)
	var calls int32
	_, err := h.orch.Resolve(context.Background(), request("k", generous, failingLoad(&calls, errors.New("boom"))))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnknown, apperr.CodeOf(err))
}

func TestResolve_QuotaExceeded(t *testing.T) {
	h := newHarness(t, time.Second)
	one := quota.Limits{WindowMax: 1, DailyMax: 100}
	var calls int32

	_, err := h.orch.Resolve(context.Background(), request("a", one, staticLoad(&calls, `"a"`)))
	require.NoError(t, err)

	t.Run("absent entry fails", func(t *testing.T) {
		_, err := h.orch.Resolve(context.Background(), request("b", one, staticLoad(&calls, `"b"`)))
		require.ErrorIs(t, err, apperr.ErrQuotaExceeded)
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, "window", e.Scope)
		assert.Equal(t, time.Hour, e.RetryAfter)
	})

	t.Run("stale entry is served", func(t *testing.T) {
		h.clock.Advance(2 * time.Minute)
		out, err := h.orch.Resolve(context.Background(), request("a", one, staticLoad(&calls, `"new"`)))
		require.NoError(t, err)
		assert.True(t, out.Stale)
		assert.Equal(t, impl.NoteQuotaExceeded, out.Note)
		assert.Equal(t, `"a"`, string(out.Payload))
	})

	assert.EqualValues(t, 1, calls)
	assert.Equal(t, 2, h.metrics.Rejected["window"])
}

func TestResolve_HardExpiredEntryIsAbsent(t *testing.T) {
	h := newHarness(t, time.Second)
	var calls int32
	_, err := h.orch.Resolve(context.Background(), request("k", generous, staticLoad(&calls, `"old"`)))
	require.NoError(t, err)

	h.clock.Advance(25 * time.Minute)
	_, err = h.orch.Resolve(context.Background(), request("k", generous, failingLoad(&calls, apperr.UpstreamUnavailable("gemini", nil))))
	require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestResolve_TimeoutIsUpstreamUnavailable(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)
	load := func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	_, err := h.orch.Resolve(context.Background(), request("slow", generous, load))
	require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolve_CallerCancellationDoesNotAbortLoad(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	load := func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []byte(`"ok"`), nil
	}
	out, err := h.orch.Resolve(ctx, request("k", generous, load))
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, string(out.Payload))
}

func TestResolve_CacheFailuresDegrade(t *testing.T) {
	h := newHarness(t, time.Second)
	h.backend.GetErr = errors.New("backend down")
	h.backend.SetErr = errors.New("backend down")
	var calls int32

	for i := 0; i < 2; i++ {
		out, err := h.orch.Resolve(context.Background(), request("k", generous, staticLoad(&calls, `"v"`)))
		require.NoError(t, err)
		assert.False(t, out.FromCache)
	}
	assert.EqualValues(t, 2, calls)
}

func TestResolve_RejectsBadRequests(t *testing.T) {
	h := newHarness(t, time.Second)
	var calls int32

	req := request("k", generous, staticLoad(&calls, `"v"`))
	req.Identity = ""
	_, err := h.orch.Resolve(context.Background(), req)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	req = request("  ", generous, staticLoad(&calls, `"v"`))
	_, err = h.orch.Resolve(context.Background(), req)
	require.ErrorIs(t, err, apperr.ErrInvalidQuery)

	assert.Zero(t, calls)
	assert.Zero(t, h.windowCount(t, "alice"))
}
