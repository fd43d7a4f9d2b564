package repositories_test

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/repositories"
)

var testPolicy = quota.Policy{Window: time.Hour, Location: time.UTC}

func newMiniRedis(t *testing.T) redis.Cmdable {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func quotaRepos(t *testing.T) map[string]ports.QuotaRepository {
	return map[string]ports.QuotaRepository{
		"memory": repositories.NewQuotaMemoryRepository(),
		"redis":  repositories.NewQuotaRedisRepository(newMiniRedis(t), "quota"),
	}
}

func TestQuotaRepositories_ConcurrentChargesAreAtomic(t *testing.T) {
	const n, m = 40, 10
	for name, repo := range quotaRepos(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
			var allowed, rejected int32
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, d, err := repo.CheckAndIncrement(context.Background(), "alice", quota.Limits{WindowMax: m, DailyMax: 100}, testPolicy, now)
					assert.NoError(t, err)
					if d.Allowed {
						atomic.AddInt32(&allowed, 1)
					} else {
						assert.Equal(t, quota.ScopeWindow, d.Scope)
						atomic.AddInt32(&rejected, 1)
					}
				}()
			}
			wg.Wait()
			require.EqualValues(t, m, allowed)
			require.EqualValues(t, n-m, rejected)

			c, ok, err := repo.Get(context.Background(), "alice")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, m, c.WindowCount)
			require.Equal(t, m, c.DailyCount)
		})
	}
}

func TestQuotaRepositories_WindowRollover(t *testing.T) {
	for name, repo := range quotaRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			limits := quota.Limits{WindowMax: 2, DailyMax: 100}
			start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
			for i := 0; i < 2; i++ {
				_, d, err := repo.CheckAndIncrement(ctx, "bob", limits, testPolicy, start)
				require.NoError(t, err)
				require.True(t, d.Allowed)
			}
			_, d, err := repo.CheckAndIncrement(ctx, "bob", limits, testPolicy, start.Add(30*time.Minute))
			require.NoError(t, err)
			require.False(t, d.Allowed)
			require.Equal(t, 30*time.Minute, d.RetryAfter)

			c, d, err := repo.CheckAndIncrement(ctx, "bob", limits, testPolicy, start.Add(time.Hour+time.Second))
			require.NoError(t, err)
			require.True(t, d.Allowed)
			require.Equal(t, 1, c.WindowCount)
			require.Equal(t, 3, c.DailyCount)
		})
	}
}

func TestQuotaRepositories_DailyLimitRejectsWithoutCharging(t *testing.T) {
	for name, repo := range quotaRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			limits := quota.Limits{WindowMax: 10, DailyMax: 1}
			now := time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)
			_, d, err := repo.CheckAndIncrement(ctx, "carol", limits, testPolicy, now)
			require.NoError(t, err)
			require.True(t, d.Allowed)

			c, d, err := repo.CheckAndIncrement(ctx, "carol", limits, testPolicy, now.Add(time.Minute))
			require.NoError(t, err)
			require.False(t, d.Allowed)
			require.Equal(t, quota.ScopeDay, d.Scope)
			require.Equal(t, 1, c.WindowCount)

			got, _, err := repo.Get(ctx, "carol")
			require.NoError(t, err)
			require.Equal(t, 1, got.WindowCount)
			require.Equal(t, 1, got.DailyCount)
		})
	}
}

func TestQuotaRepositories_GetUnknownIdentity(t *testing.T) {
	for name, repo := range quotaRepos(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := repo.Get(context.Background(), "nobody")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var quotaColumns = []string{"identity", "window_count", "window_reset_at", "daily_count", "daily_reset_at"}

func TestQuotaPostgres_ChargeSucceeds(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := repositories.NewQuotaPostgresRepository(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quota_counters")).
		WithArgs("alice", now.Add(time.Hour), time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE quota_counters SET")).
		WithArgs("alice", now, now.Add(time.Hour), time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), 10, 100).
		WillReturnRows(sqlmock.NewRows(quotaColumns).AddRow("alice", 1, now.Add(time.Hour), 1, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)))

	c, d, err := repo.CheckAndIncrement(context.Background(), "alice", quota.Limits{WindowMax: 10, DailyMax: 100}, testPolicy, now)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 1, c.WindowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaPostgres_RejectionReadsScopeWithoutWriting(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := repositories.NewQuotaPostgresRepository(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	windowReset := now.Add(15 * time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quota_counters")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE quota_counters SET")).WillReturnRows(sqlmock.NewRows(quotaColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT identity, window_count")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(quotaColumns).AddRow("alice", 10, windowReset, 10, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)))

	c, d, err := repo.CheckAndIncrement(context.Background(), "alice", quota.Limits{WindowMax: 10, DailyMax: 100}, testPolicy, now)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, quota.ScopeWindow, d.Scope)
	require.Equal(t, 15*time.Minute, d.RetryAfter)
	require.Equal(t, 10, c.WindowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaPostgres_RolloverRaceChargesAgain(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := repositories.NewQuotaPostgresRepository(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	dailyReset := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quota_counters")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE quota_counters SET")).WillReturnRows(sqlmock.NewRows(quotaColumns))
	// Another caller rolled the window over after the rejected UPDATE.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT identity, window_count")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(quotaColumns).AddRow("alice", 1, now.Add(time.Hour), 11, dailyReset))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE quota_counters SET")).
		WillReturnRows(sqlmock.NewRows(quotaColumns).AddRow("alice", 2, now.Add(time.Hour), 12, dailyReset))

	c, d, err := repo.CheckAndIncrement(context.Background(), "alice", quota.Limits{WindowMax: 10, DailyMax: 100}, testPolicy, now)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 2, c.WindowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaPostgres_PersistentRaceIsStoreError(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := repositories.NewQuotaPostgresRepository(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	dailyReset := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quota_counters")).WillReturnResult(sqlmock.NewResult(0, 0))
	for range 2 {
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE quota_counters SET")).WillReturnRows(sqlmock.NewRows(quotaColumns))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT identity, window_count")).
			WillReturnRows(sqlmock.NewRows(quotaColumns).AddRow("alice", 1, now.Add(time.Hour), 1, dailyReset))
	}

	_, d, err := repo.CheckAndIncrement(context.Background(), "alice", quota.Limits{WindowMax: 10, DailyMax: 100}, testPolicy, now)
	require.ErrorIs(t, err, repositories.ErrQuotaContended)
	require.False(t, d.Allowed)
	require.NoError(t, mock.ExpectationsWereMet())
}
