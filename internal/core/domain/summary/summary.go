package summary

import (
	"strings"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
)

const noSummaryText = "Unable to generate AI summary. Please read the full article for details."

// Request identifies the article to summarize. URL is the cache key material.
type Request struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.URL) == "" {
		return apperr.InvalidQuery("title and url are required")
	}
	return nil
}

type Summary struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s Summary) Complete() bool {
	return strings.TrimSpace(s.Title) != "" && strings.TrimSpace(s.Content) != ""
}

// Result is the cached payload. UsedFallback marks output derived from the request instead of the model.
type Result struct {
	Summary      Summary `json:"summary"`
	UsedFallback bool    `json:"usedFallback"`
}

// Fallback derives a placeholder summary from the article itself.
func Fallback(title, description string) Result {
	s := Summary{Title: news.Excerpt(title, 50), Content: noSummaryText}
	if strings.TrimSpace(description) != "" {
		s.Content = news.Excerpt(description, 150)
	}
	return Result{Summary: s, UsedFallback: true}
}
