package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

// QuotaService charges per-identity upstream usage against a single policy.
type QuotaService struct {
	repo    ports.QuotaRepository
	policy  quota.Policy
	metrics ports.MetricsRecorder
	logger  *logrus.Logger
	now     func() time.Time
}

var _ ports.QuotaService = (*QuotaService)(nil)

func NewQuotaService(repo ports.QuotaRepository, policy quota.Policy, metrics ports.MetricsRecorder, logger *logrus.Logger) *QuotaService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &QuotaService{repo: repo, policy: policy, metrics: metrics, logger: logger, now: time.Now}
}

// WithClock replaces the time source.
func (s *QuotaService) WithClock(now func() time.Time) *QuotaService {
	s.now = now
	return s
}

// CheckAndIncrement fails open when the counter store is unreachable: the request is let
// through uncharged and a warning is logged.
func (s *QuotaService) CheckAndIncrement(ctx context.Context, identity string, limits quota.Limits) (*quota.Counter, error) {
	if identity == "" {
		return nil, apperr.Unauthenticated("identity is required")
	}
	counter, decision, err := s.repo.CheckAndIncrement(ctx, identity, limits, s.policy, s.now())
	if err != nil {
		s.logger.WithFields(logrus.Fields{"identity": identity}).WithError(err).Warn("quota: store unavailable, allowing request")
		return nil, nil
	}
	if !decision.Allowed {
		s.metrics.QuotaRejected(string(decision.Scope))
		s.logger.WithFields(logrus.Fields{
			"identity":    identity,
			"scope":       decision.Scope,
			"retry_after": decision.RetryAfter.String(),
		}).Info("quota: request rejected")
		return counter, apperr.QuotaExceeded(string(decision.Scope), decision.RetryAfter)
	}
	s.logger.WithFields(logrus.Fields{
		"identity":     identity,
		"window_count": counter.WindowCount,
		"daily_count":  counter.DailyCount,
	}).Debug("quota: charged")
	return counter, nil
}

// Peek returns the counter as it would look now, with any due rollover applied but not stored.
func (s *QuotaService) Peek(ctx context.Context, identity string) (*quota.Counter, error) {
	if identity == "" {
		return nil, apperr.Unauthenticated("identity is required")
	}
	c, ok, err := s.repo.Get(ctx, identity)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !ok {
		return &quota.Counter{
			Identity:      identity,
			WindowResetAt: s.policy.NextWindowReset(now),
			DailyResetAt:  s.policy.NextDailyReset(now),
		}, nil
	}
	view := *c
	if now.After(view.WindowResetAt) {
		view.WindowCount = 0
		view.WindowResetAt = s.policy.NextWindowReset(now)
	}
	if now.After(view.DailyResetAt) {
		view.DailyCount = 0
		view.DailyResetAt = s.policy.NextDailyReset(now)
	}
	return &view, nil
}
