package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/bulletin"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

const (
	// LatestBulletinKey holds the stage-one bulletin of the last 24 hours.
	LatestBulletinKey = "bulletin:24hrs"
	// CardsKeyPrefix is followed by the bullets' fingerprint.
	CardsKeyPrefix = "bulletin:cards:"

	bulletinSourceArticles = 25
	bulletinSearch         = "breaking news world"
)

const bulletPrompt = `You are a world-class news editor. Analyze these %d top news stories from the past 24 hours and create EXACTLY %d bullet points representing the most important global news.

Requirements:
- EXACTLY %d bullets (no more, no less)
- Each bullet must be 1-2 concise sentences
- Prioritize: Breaking news > Major developments > Significant events
- Cover diverse topics (politics, economy, technology, health, environment, etc.)
- Focus on factual information, avoid speculation
- Each bullet should be standalone and clear

Articles to analyze:
%s

Format: Return ONLY the %d bullets, one per line, no numbering, no extra text.`

const cardPrompt = `You are a news analyst. Take these %d news bullet points and expand EACH into a detailed card with:
- A compelling TITLE (5-10 words)
- A detailed DESCRIPTION (3-4 sentences with context, implications, and key facts)

Return EXACTLY %d cards in valid JSON format:
[
  {"title": "...", "description": "..."}
]

Bullets to expand:
%s

Return ONLY the JSON array, no markdown, no extra text.`

// BulletinService builds the two-stage digest: articles to bullets, then bullets to cards.
type BulletinService struct {
	orch        ports.Orchestrator
	articles    ports.ArticleProvider
	gen         ports.TextGenerator
	limits      quota.Limits
	bulletinTTL time.Duration
	cardsTTL    time.Duration
	logger      *logrus.Logger
	now         func() time.Time
}

var _ ports.BulletinService = (*BulletinService)(nil)

func NewBulletinService(orch ports.Orchestrator, articles ports.ArticleProvider, gen ports.TextGenerator, limits quota.Limits, bulletinTTL, cardsTTL time.Duration, logger *logrus.Logger) *BulletinService {
	return &BulletinService{
		orch:        orch,
		articles:    articles,
		gen:         gen,
		limits:      limits,
		bulletinTTL: bulletinTTL,
		cardsTTL:    cardsTTL,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *BulletinService) Latest(ctx context.Context, identity string) (*ports.BulletinView, error) {
	b, fr, err := resolveJSON(ctx, s.orch, ports.FetchRequest{
		Kind:     "bulletin",
		Key:      LatestBulletinKey,
		Identity: identity,
		Limits:   s.limits,
		TTL:      s.bulletinTTL,
	}, s.generate)
	if err != nil {
		return nil, err
	}
	return &ports.BulletinView{Bulletin: b, Freshness: fr}, nil
}

func (s *BulletinService) generate(ctx context.Context) (*bulletin.Bulletin, error) {
	start := s.now()
	q := news.Query{
		Provider:  news.ProviderGuardian,
		Topic:     "all",
		Search:    bulletinSearch,
		TimeRange: news.Range24h,
		PageSize:  bulletinSourceArticles,
	}
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	res, err := s.articles.FetchArticles(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(res.Articles) == 0 {
		return nil, apperr.UpstreamUnavailable(string(q.Provider), errors.New("no articles found in the last 24 hours"))
	}

	var sb strings.Builder
	sources := make([]bulletin.SourceArticle, 0, len(res.Articles))
	for i, a := range res.Articles {
		desc := a.Description
		if desc == "" {
			desc = "No description available"
		}
		fmt.Fprintf(&sb, "%d. %s\n%s\n\n", i+1, a.Title, desc)
		sources = append(sources, bulletin.SourceArticle{Title: a.Title, URL: a.URL, PublishedAt: a.PublishedAt})
	}

	prompt := fmt.Sprintf(bulletPrompt, len(res.Articles), bulletin.Size, bulletin.Size, strings.TrimSpace(sb.String()), bulletin.Size)
	bullets, err := s.gen.GenerateList(ctx, prompt, bulletin.Size)
	if err != nil {
		return nil, err
	}

	b := bulletin.New(bullets, sources, s.now(), s.now().Sub(start))
	s.logger.WithFields(logrus.Fields{
		"bulletin_id": b.ID,
		"articles":    len(sources),
		"elapsed_ms":  b.Metadata.ProcessingTimeMs,
	}).Info("Bulletin generated")
	return b, nil
}

type cardSet struct {
	Cards []bulletin.Card `json:"cards"`
}

func (s *BulletinService) Expand(ctx context.Context, identity string, bullets []string) (*ports.CardsView, error) {
	if identity == "" {
		return nil, apperr.Unauthenticated("identity is required")
	}
	if err := bulletin.ValidateBullets(bullets); err != nil {
		return nil, err
	}
	fp := bulletin.Fingerprint(bullets)
	set, fr, err := resolveJSON(ctx, s.orch, ports.FetchRequest{
		Kind:     "bulletin_cards",
		Key:      CardsKeyPrefix + fp,
		Identity: identity,
		Limits:   s.limits,
		TTL:      s.cardsTTL,
	}, func(ctx context.Context) (*cardSet, error) {
		cards, err := s.expand(ctx, bullets)
		if err != nil {
			return nil, err
		}
		return &cardSet{Cards: cards}, nil
	})
	if err != nil {
		return nil, err
	}
	return &ports.CardsView{Cards: set.Cards, Fingerprint: fp, Freshness: fr}, nil
}

// expand asks for one card per bullet and retries exactly once when the output is
// malformed or has the wrong number of cards.
func (s *BulletinService) expand(ctx context.Context, bullets []string) ([]bulletin.Card, error) {
	var sb strings.Builder
	for i, b := range bullets {
		fmt.Fprintf(&sb, "%d. %s\n\n", i+1, b)
	}
	prompt := fmt.Sprintf(cardPrompt, len(bullets), len(bullets), strings.TrimSpace(sb.String()))

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		var cards []bulletin.Card
		err := s.gen.GenerateStructured(ctx, prompt, &cards)
		if err == nil {
			err = bulletin.ValidateCards(cards, len(bullets))
		}
		if err == nil {
			return cards, nil
		}
		if apperr.CodeOf(err) != apperr.CodeInvalidResponse {
			return nil, err
		}
		lastErr = err
		s.logger.WithFields(logrus.Fields{"attempt": attempt}).WithError(err).Warn("Card generation returned invalid output")
	}
	return nil, lastErr
}
