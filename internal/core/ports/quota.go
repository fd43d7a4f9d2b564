package ports

import (
	"context"
	"time"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
)

// QuotaRepository owns the per-identity counters. CheckAndIncrement must be atomic with
// respect to concurrent callers on the same identity, using the store's native primitive.
type QuotaRepository interface {
	CheckAndIncrement(ctx context.Context, identity string, limits quota.Limits, policy quota.Policy, now time.Time) (*quota.Counter, quota.Decision, error)
	// Get returns the stored counter; ok=false if the identity was never charged.
	Get(ctx context.Context, identity string) (*quota.Counter, bool, error)
}

// QuotaService is the quota tracker used by the orchestrator.
type QuotaService interface {
	// CheckAndIncrement charges one request or fails with apperr QUOTA_EXCEEDED.
	CheckAndIncrement(ctx context.Context, identity string, limits quota.Limits) (*quota.Counter, error)
	// Peek reports the counter without charging, with rollover applied for display.
	Peek(ctx context.Context, identity string) (*quota.Counter, error)
}
