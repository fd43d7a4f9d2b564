package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

// NewsService serves article searches from whichever providers are configured.
type NewsService struct {
	orch      ports.Orchestrator
	providers map[news.ProviderID]ports.ArticleProvider
	ttls      map[news.ProviderID]time.Duration
	limits    quota.Limits
	logger    *logrus.Logger
}

var _ ports.NewsService = (*NewsService)(nil)

func NewNewsService(orch ports.Orchestrator, providers []ports.ArticleProvider, ttls map[news.ProviderID]time.Duration, limits quota.Limits, logger *logrus.Logger) *NewsService {
	byID := make(map[news.ProviderID]ports.ArticleProvider, len(providers))
	for _, p := range providers {
		byID[p.ID()] = p
	}
	return &NewsService{orch: orch, providers: byID, ttls: ttls, limits: limits, logger: logger}
}

func (s *NewsService) Resolve(ctx context.Context, identity string, q news.Query) (*ports.NewsFeed, error) {
	if identity == "" {
		return nil, apperr.Unauthenticated("identity is required")
	}
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	p, ok := s.providers[q.Provider]
	if !ok {
		return nil, apperr.InvalidQuery("provider %q is not configured", q.Provider)
	}
	if err := p.ValidateQuery(q); err != nil {
		return nil, err
	}

	ttl := s.ttls[q.Provider]
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	res, fr, err := resolveJSON(ctx, s.orch, ports.FetchRequest{
		Kind:     "news",
		Key:      q.CacheKey(),
		Identity: identity,
		Limits:   s.limits,
		TTL:      ttl,
	}, func(ctx context.Context) (*news.Result, error) {
		return p.FetchArticles(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	if fr.Note == "" {
		fr.Note = res.Note
	}
	s.logger.WithFields(logrus.Fields{
		"provider":   q.Provider,
		"topic":      q.Topic,
		"time":       q.TimeRange,
		"count":      res.Count,
		"from_cache": fr.FromCache,
		"stale":      fr.Stale,
	}).Debug("News resolved")
	return &ports.NewsFeed{Result: res, Freshness: fr}, nil
}
