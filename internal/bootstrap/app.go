// Package bootstrap wires configuration into the concrete stores, providers and services
// shared by the HTTP server and the newsctl CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/configs"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/application/services"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/db"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/email"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/health"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/metrics"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/natskv"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers/gemini"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers/guardian"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers/newsapi"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers/rss"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/redis"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/repositories"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/resilience"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/ristretto"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/tiered"
)

// App is the fully wired service graph. Close releases every connection it opened.
type App struct {
	Config   *configs.Config
	Logger   *logrus.Logger
	Metrics  *metrics.Recorder
	Gatherer prometheus.Gatherer

	Orchestrator *services.Orchestrator
	Quota        *services.QuotaService
	News         *services.NewsService
	Bulletins    *services.BulletinService
	Summaries    *services.SummaryService
	Chat         *services.ChatService
	Identity     *services.IdentityService
	RateLimiter  ports.RateLimiterService
	Mailer       ports.DigestMailer

	HealthCheckers []ports.HealthChecker
	NewsLimits     quota.Limits
	AILimits       quota.Limits

	closers []func() error
}

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg configs.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

// New connects the configured backends and builds every service. reg receives the
// application metrics; pass prometheus.NewRegistry() for isolated runs.
func New(ctx context.Context, cfg *configs.Config, logger *logrus.Logger, reg *prometheus.Registry) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Gatherer: reg}
	if err := app.build(ctx, reg); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, reg *prometheus.Registry) (err error) {
	cfg, logger := a.Config, a.Logger
	a.Metrics = metrics.New(reg)

	var redisClient goredis.UniversalClient
	needRedis := cfg.Cache.Backend == "redis" || cfg.Cache.Backend == "tiered" ||
		cfg.Quota.Backend == "redis" || cfg.RateLimit.Backend == "redis"
	if needRedis {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, redisClient.Close)
		a.HealthCheckers = append(a.HealthCheckers, health.NewRedisHealthChecker(redisClient))
		logger.Info("Connected to Redis successfully")
	}

	backend, err := a.cacheBackend(ctx, redisClient)
	if err != nil {
		return err
	}
	quotaRepo, err := a.quotaRepository(redisClient)
	if err != nil {
		return err
	}

	loc, err := cfg.Quota.Location()
	if err != nil {
		return err
	}
	a.Quota = services.NewQuotaService(quotaRepo, quota.Policy{Window: cfg.Quota.Window, Location: loc}, a.Metrics, logger)
	store := repositories.NewCacheEntryRepository(backend, cfg.Cache.HardTTLMultiplier, logger)
	a.Orchestrator = services.NewOrchestrator(store, a.Quota, a.Metrics, cfg.Providers.Timeout, logger)

	a.NewsLimits = quota.Limits{WindowMax: cfg.Quota.NewsWindowMax, DailyMax: cfg.Quota.NewsDailyMax}
	a.AILimits = quota.Limits{WindowMax: cfg.Quota.AIWindowMax, DailyMax: cfg.Quota.AIDailyMax}

	pc := cfg.Providers
	guardianClient := guardian.NewClient(pc.GuardianURL, pc.GuardianKey, a.caller(), logger)
	newsapiClient := newsapi.NewClient(pc.NewsAPIBaseURL, pc.NewsAPIKey, a.caller(), logger)
	rssFetcher := rss.NewFetcher(pc.RSSFeeds, providers.NewHTTPClient(pc.Timeout), a.Metrics, logger)
	geminiClient := gemini.NewClient(pc.GeminiBaseURL, pc.GeminiKey, pc.GeminiModel, a.caller(), logger)

	ttls := map[news.ProviderID]time.Duration{
		news.ProviderGuardian: cfg.Cache.GuardianTTL,
		news.ProviderNewsAPI:  cfg.Cache.NewsAPITTL,
		news.ProviderRSS:      cfg.Cache.RSSTTL,
	}
	a.News = services.NewNewsService(a.Orchestrator,
		[]ports.ArticleProvider{guardianClient, newsapiClient, rssFetcher}, ttls, a.NewsLimits, logger)
	a.Bulletins = services.NewBulletinService(a.Orchestrator, guardianClient, geminiClient,
		a.AILimits, cfg.Cache.BulletinTTL, cfg.Cache.CardsTTL, logger)
	a.Summaries = services.NewSummaryService(a.Orchestrator, geminiClient, a.AILimits, cfg.Cache.SummaryTTL, logger)
	a.Chat = services.NewChatService(geminiClient, a.Quota, a.AILimits, logger)
	a.Identity = services.NewIdentityService(cfg.Identity.JWTSecret, cfg.Identity.Issuer)

	rlCfg := &services.RateLimiterConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		BurstMultiplier:   cfg.RateLimit.BurstMultiplier,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         cfg.RateLimit.KeyPrefix,
	}
	if cfg.RateLimit.Backend == "redis" {
		a.RateLimiter = services.NewRateLimiterService(repositories.NewRateLimitRedisRepository(redisClient), rlCfg, logger)
	} else {
		a.RateLimiter = services.NewLocalRateLimiter(rlCfg)
	}

	if cfg.Email.SendGridAPIKey != "" {
		mailer, err := email.NewEmailService(cfg.Email, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}
		a.Mailer = mailer
	}

	return nil
}

// caller returns a fresh upstream caller. Each provider gets its own breaker so one failing
// upstream does not open the circuit for the others.
func (a *App) caller() *providers.Caller {
	pc := a.Config.Providers
	return &providers.Caller{
		HTTP:    providers.NewHTTPClient(pc.Timeout),
		Breaker: resilience.NewBreaker(pc.BreakerThreshold, pc.BreakerTimeout, providers.TripsBreaker),
		Metrics: a.Metrics,
	}
}

func (a *App) cacheBackend(ctx context.Context, redisClient goredis.UniversalClient) (ports.Cache, error) {
	cfg := a.Config.Cache
	switch cfg.Backend {
	case "memory":
		mem, err := ristretto.New(cfg.MemoryMaxBytes)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { mem.Close(); return nil })
		return mem, nil
	case "nats":
		kv, conn, err := natskv.Connect(ctx, a.Config.NATS.URL, a.Config.NATS.Bucket, cfg.MaxHardTTL())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { conn.Close(); return nil })
		a.HealthCheckers = append(a.HealthCheckers, health.NewNATSHealthChecker(conn))
		a.Logger.WithField("bucket", a.Config.NATS.Bucket).Info("Connected to NATS JetStream")
		return kv, nil
	case "tiered":
		mem, err := ristretto.New(cfg.MemoryMaxBytes)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { mem.Close(); return nil })
		return tiered.New(mem, redis.NewCache(redisClient, cfg.KeyPrefix), cfg.L1Expire, a.Logger), nil
	default:
		return redis.NewCache(redisClient, cfg.KeyPrefix), nil
	}
}

func (a *App) quotaRepository(redisClient goredis.UniversalClient) (ports.QuotaRepository, error) {
	cfg := a.Config
	switch cfg.Quota.Backend {
	case "memory":
		return repositories.NewQuotaMemoryRepository(), nil
	case "postgres":
		database, err := db.NewDatabase(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)
		a.HealthCheckers = append(a.HealthCheckers, health.NewDBHealthChecker(database))
		a.Logger.Info("Connected to database successfully")
		if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
			a.Logger.WithError(err).Warn("Failed to run migrations")
		}
		return repositories.NewQuotaPostgresRepository(database.DB), nil
	default:
		return repositories.NewQuotaRedisRepository(redisClient, cfg.Quota.KeyPrefix), nil
	}
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
