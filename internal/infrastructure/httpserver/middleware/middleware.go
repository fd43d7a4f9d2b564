package middleware

import (
	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/metrics"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	Identity  *IdentityMiddleware
	Logging   *LoggingMiddleware
	RateLimit *RateLimitMiddleware
	Metrics   *MetricsMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(
	verifier ports.IdentityVerifier,
	rateLimiterService ports.RateLimiterService,
	recorder *metrics.Recorder,
	logger *logrus.Logger,
) *MiddlewareCollection {
	return &MiddlewareCollection{
		Identity:  NewIdentityMiddleware(verifier, logger),
		Logging:   NewLoggingMiddleware(logger),
		RateLimit: NewRateLimitMiddleware(rateLimiterService, logger),
		Metrics:   NewMetricsMiddleware(recorder),
	}
}
