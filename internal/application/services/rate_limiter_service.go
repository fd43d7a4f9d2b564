package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

// RateLimiterService implements ports.RateLimiterService as a fixed window shared through
// the rate-limit repository.
type RateLimiterService struct {
	repo            ports.RateLimitRepository
	limit           int
	burstMultiplier float64
	window          time.Duration
	keyPrefix       string
	logger          *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerMinute int
	BurstMultiplier   float64
	Window            time.Duration
	KeyPrefix         string
}

func (c *RateLimiterConfig) withDefaults() RateLimiterConfig {
	out := RateLimiterConfig{RequestsPerMinute: 120, BurstMultiplier: 2.0, Window: time.Minute, KeyPrefix: "ratelimit:ip"}
	if c == nil {
		return out
	}
	if c.RequestsPerMinute > 0 {
		out.RequestsPerMinute = c.RequestsPerMinute
	}
	if c.BurstMultiplier > 0 {
		out.BurstMultiplier = c.BurstMultiplier
	}
	if c.Window > 0 {
		out.Window = c.Window
	}
	if c.KeyPrefix != "" {
		out.KeyPrefix = c.KeyPrefix
	}
	return out
}

var _ ports.RateLimiterService = (*RateLimiterService)(nil)

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	c := cfg.withDefaults()
	return &RateLimiterService{
		repo:            repo,
		limit:           c.RequestsPerMinute,
		burstMultiplier: c.BurstMultiplier,
		window:          c.Window,
		keyPrefix:       c.KeyPrefix,
		logger:          logger,
	}
}

func (s *RateLimiterService) Allow(ctx context.Context, key string) (bool, int, int, time.Time, error) {
	ttl := s.window * 2 // retain overlap window
	count, windowStart, err := s.repo.IncrementWindow(ctx, key, s.window, s.keyPrefix, ttl)
	reset := windowStart.Add(s.window)
	burst := int(float64(s.limit) * s.burstMultiplier)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("rate limiter: failed to increment window")
		}
		// fail open
		return true, burst, s.limit, reset, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key, "count": count, "burst": burst, "limit": s.limit}).Debug("rate limiter window state")
	}
	if count > burst {
		return false, 0, s.limit, reset, nil
	}
	return true, burst - count, s.limit, reset, nil
}

// LocalRateLimiter is a per-process token bucket per key, for single-instance deployments
// without Redis.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    int
	burst    int
	window   time.Duration
	now      func() time.Time
}

var _ ports.RateLimiterService = (*LocalRateLimiter)(nil)

func NewLocalRateLimiter(cfg *RateLimiterConfig) *LocalRateLimiter {
	c := cfg.withDefaults()
	return &LocalRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    c.RequestsPerMinute,
		burst:    int(float64(c.RequestsPerMinute) * c.BurstMultiplier),
		window:   c.Window,
		now:      time.Now,
	}
}

func (l *LocalRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		every := l.window / time.Duration(max(l.limit, 1))
		lim = rate.NewLimiter(rate.Every(every), l.burst)
		l.limiters[key] = lim
	}
	return lim
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, int, int, time.Time, error) {
	now := l.now()
	lim := l.limiter(key)
	allowed := lim.AllowN(now, 1)
	remaining := max(int(lim.TokensAt(now)), 0)
	reset := now
	if remaining < l.burst {
		reset = now.Add(time.Duration(l.burst-remaining) * l.window / time.Duration(max(l.limit, 1)))
	}
	return allowed, remaining, l.limit, reset, nil
}
