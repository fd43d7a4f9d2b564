package bootstrap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hafiz-Al-Shams/news-nexus/configs"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/bootstrap"
)

func memoryConfig() *configs.Config {
	return &configs.Config{
		Log:   configs.LogConfig{Level: "error", Format: "text"},
		Cache: configs.CacheConfig{Backend: "memory", HardTTLMultiplier: 24, MemoryMaxBytes: 1 << 20, GuardianTTL: 5 * time.Minute},
		Quota: configs.QuotaConfig{Backend: "memory", Window: time.Hour, Timezone: "UTC", NewsWindowMax: 3, NewsDailyMax: 10, AIWindowMax: 2, AIDailyMax: 5},
		Providers: configs.ProvidersConfig{
			Timeout:          time.Second,
			GuardianURL:      "http://127.0.0.1:1",
			BreakerThreshold: 3,
			BreakerTimeout:   time.Second,
		},
		Identity:  configs.IdentityConfig{JWTSecret: "secret"},
		RateLimit: configs.RateLimitConfig{Backend: "local", RequestsPerMinute: 60},
		Telemetry: configs.TelemetryConfig{ServiceName: "news-nexus"},
	}
}

func TestNewLogger(t *testing.T) {
	logger := bootstrap.NewLogger(configs.LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = bootstrap.NewLogger(configs.LogConfig{Level: "nonsense", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNew_InMemoryBackends(t *testing.T) {
	cfg := memoryConfig()
	app, err := bootstrap.New(context.Background(), cfg, bootstrap.NewLogger(cfg.Log), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NotNil(t, app.News)
	require.NotNil(t, app.Bulletins)
	require.NotNil(t, app.Summaries)
	require.NotNil(t, app.Chat)
	assert.Nil(t, app.Mailer, "mailer needs a SendGrid key")
	assert.Empty(t, app.HealthCheckers)

	counter, err := app.Quota.Peek(context.Background(), "alice")
	require.NoError(t, err)
	assert.Zero(t, counter.WindowCount)

	srv := app.NewServer("test")
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := memoryConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis = configs.RedisConfig{Host: "127.0.0.1", Port: "1", DialTimeout: 100 * time.Millisecond}
	_, err := bootstrap.New(context.Background(), cfg, bootstrap.NewLogger(cfg.Log), prometheus.NewRegistry())
	require.Error(t, err)
}
