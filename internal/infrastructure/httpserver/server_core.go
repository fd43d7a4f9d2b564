package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	customMiddleware "github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/httpserver/middleware"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/metrics"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	ServiceName    string
	Version        string
}

type ServerDeps struct {
	NewsService        ports.NewsService
	BulletinService    ports.BulletinService
	SummaryService     ports.SummaryService
	ChatService        ports.ChatService
	QuotaService       ports.QuotaService
	IdentityVerifier   ports.IdentityVerifier
	RateLimiterService ports.RateLimiterService
	HealthCheckers     []ports.HealthChecker
	// Metrics may be nil; /metrics then serves an empty registry.
	Metrics  *metrics.Recorder
	Gatherer prometheus.Gatherer
	// QuotaLimits names the limit sets reported by GET /api/v1/quota.
	QuotaLimits map[string]quota.Limits
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	newsSvc        ports.NewsService
	bulletinSvc    ports.BulletinService
	summarySvc     ports.SummaryService
	chatSvc        ports.ChatService
	quotaSvc       ports.QuotaService
	quotaLimits    map[string]quota.Limits
	gatherer       prometheus.Gatherer
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		newsSvc:        deps.NewsService,
		bulletinSvc:    deps.BulletinService,
		summarySvc:     deps.SummaryService,
		chatSvc:        deps.ChatService,
		quotaSvc:       deps.QuotaService,
		quotaLimits:    deps.QuotaLimits,
		gatherer:       gatherer,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.IdentityVerifier,
			deps.RateLimiterService,
			deps.Metrics,
			logger,
		),
	}
	e.HTTPErrorHandler = server.errorHandler

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
