package ports

import (
	"context"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/chat"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
)

// ArticleProvider is an article-search upstream. Failures carry apperr codes RATE_LIMITED,
// UNAUTHORIZED, INVALID_QUERY or UPSTREAM_UNAVAILABLE. Adapters never retry.
type ArticleProvider interface {
	ID() news.ProviderID
	// ValidateQuery rejects topics or ranges the upstream cannot serve.
	ValidateQuery(q news.Query) error
	FetchArticles(ctx context.Context, q news.Query) (*news.Result, error)
}

// TextGenerator is a text-generation upstream. Failures carry apperr codes RATE_LIMITED,
// INVALID_RESPONSE or UPSTREAM_UNAVAILABLE.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, history []chat.Message) (string, error)
	// GenerateStructured decodes a JSON answer into out, with one sanitization pass on failure.
	GenerateStructured(ctx context.Context, prompt string, out any) error
	// GenerateList returns the first n non-empty lines, with list markers removed.
	GenerateList(ctx context.Context, prompt string, n int) ([]string, error)
}
