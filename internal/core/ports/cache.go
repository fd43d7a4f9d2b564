package ports

import (
	"context"
	"time"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/cache"
)

// Cache defines a minimal key-value cache contract.
// Implementations should degrade gracefully (returning an error without crashing callers)
// so that the orchestrator can treat a failing backend as a miss.
type Cache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 or negative means no expiration if supported).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
}

// EntryStore is the TTL cache store: entries carry their own soft and hard expiry
// and reads classify them as Fresh, Stale or Absent.
type EntryStore interface {
	Get(ctx context.Context, key string) (*cache.Entry, cache.State, error)
	// Put upserts key; last writer wins and FetchedAt/ExpiresAt are reset.
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) (*cache.Entry, error)
}
