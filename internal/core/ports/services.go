package ports

import (
	"context"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/bulletin"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/chat"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/summary"
)

// NewsFeed carries the provider note, if any, in Freshness.Note.
type NewsFeed struct {
	Result *news.Result
	Freshness
}

type BulletinView struct {
	Bulletin *bulletin.Bulletin
	Freshness
}

type CardsView struct {
	Cards       []bulletin.Card
	Fingerprint string
	Freshness
}

type SummaryView struct {
	summary.Result
	Freshness
}

type NewsService interface {
	Resolve(ctx context.Context, identity string, q news.Query) (*NewsFeed, error)
}

type BulletinService interface {
	// Latest returns the stage-one bulletin of the last 24 hours.
	Latest(ctx context.Context, identity string) (*BulletinView, error)
	// Expand returns one card per bullet, keyed by the bullets' fingerprint.
	Expand(ctx context.Context, identity string, bullets []string) (*CardsView, error)
}

type SummaryService interface {
	Summarize(ctx context.Context, identity string, req summary.Request) (*SummaryView, error)
}

type ChatService interface {
	Reply(ctx context.Context, identity, message string, history []chat.Message) (*chat.Reply, error)
}

// IdentityVerifier turns a bearer token into the opaque identity the core rate-limits on.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}
