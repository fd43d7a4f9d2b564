package health_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraDB "github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/db"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/health"
)

func TestRedisHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hc := health.NewRedisHealthChecker(client)
	assert.Equal(t, "redis", hc.Name())
	require.NoError(t, hc.Check(context.Background()))

	mr.Close()
	assert.Error(t, hc.Check(context.Background()))
}

func TestDBHealthChecker(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	mock.ExpectPing()
	hc := health.NewDBHealthChecker(&infraDB.Database{DB: sqlx.NewDb(raw, "postgres")})
	assert.Equal(t, "database", hc.Name())
	require.NoError(t, hc.Check(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
