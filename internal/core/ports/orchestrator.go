package ports

import (
	"context"
	"time"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
)

// LoadFunc performs the upstream call for a cache miss and returns the payload to cache.
type LoadFunc func(ctx context.Context) ([]byte, error)

// FetchRequest describes one read-through resolution.
type FetchRequest struct {
	// Kind labels metrics and logs, e.g. "news", "bulletin", "summary".
	Kind     string
	Key      string
	Identity string
	Limits   quota.Limits
	TTL      time.Duration
	Load     LoadFunc
}

// Freshness tags every payload returned to callers so degraded output is never ambiguous.
type Freshness struct {
	FromCache bool       `json:"fromCache"`
	Stale     bool       `json:"stale,omitempty"`
	CachedAt  *time.Time `json:"cachedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Note      string     `json:"note,omitempty"`
}

type Outcome struct {
	Payload []byte
	Freshness
}

// Orchestrator resolves a request through cache, quota and provider in that order.
type Orchestrator interface {
	Resolve(ctx context.Context, req FetchRequest) (*Outcome, error)
}
