package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/summary"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

const summaryPrompt = `You are a professional news summarizer. Summarize the following news article concisely.

Article Title: %s
Article Description: %s

Use only standard ASCII quotes (") and apostrophes ('). Do NOT use smart quotes or special characters.

Provide your response in this EXACT JSON format (no markdown, no code blocks):
{
  "title": "A concise 5-6 word headline",
  "content": "A 2-3 sentence summary (max 60 words total)"
}

Focus on the most important facts. Be clear and direct.`

// SummaryKey is the cache key of an article summary.
func SummaryKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "summary:" + hex.EncodeToString(sum[:])
}

type SummaryService struct {
	orch   ports.Orchestrator
	gen    ports.TextGenerator
	limits quota.Limits
	ttl    time.Duration
	logger *logrus.Logger
}

var _ ports.SummaryService = (*SummaryService)(nil)

func NewSummaryService(orch ports.Orchestrator, gen ports.TextGenerator, limits quota.Limits, ttl time.Duration, logger *logrus.Logger) *SummaryService {
	return &SummaryService{orch: orch, gen: gen, limits: limits, ttl: ttl, logger: logger}
}

// Summarize caches one summary per article URL. Unparseable model output is replaced by a
// fallback built from the article and cached like a real summary, marked UsedFallback.
func (s *SummaryService) Summarize(ctx context.Context, identity string, req summary.Request) (*ports.SummaryView, error) {
	if identity == "" {
		return nil, apperr.Unauthenticated("identity is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	res, fr, err := resolveJSON(ctx, s.orch, ports.FetchRequest{
		Kind:     "summary",
		Key:      SummaryKey(req.URL),
		Identity: identity,
		Limits:   s.limits,
		TTL:      s.ttl,
	}, func(ctx context.Context) (*summary.Result, error) {
		return s.generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return &ports.SummaryView{Result: *res, Freshness: fr}, nil
}

func (s *SummaryService) generate(ctx context.Context, req summary.Request) (*summary.Result, error) {
	desc := req.Description
	if desc == "" {
		desc = "No description available"
	}
	var out summary.Summary
	err := s.gen.GenerateStructured(ctx, fmt.Sprintf(summaryPrompt, req.Title, desc), &out)
	if err == nil && out.Complete() {
		return &summary.Result{Summary: out}, nil
	}
	if err != nil && apperr.CodeOf(err) != apperr.CodeInvalidResponse {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"url": req.URL}).WithError(err).Warn("Summary output unusable, caching fallback")
	fb := summary.Fallback(req.Title, req.Description)
	return &fb, nil
}
