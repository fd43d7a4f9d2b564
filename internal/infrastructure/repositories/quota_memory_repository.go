package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
)

// QuotaMemoryRepository is a process-local counter store for single-instance deployments and tests.
type QuotaMemoryRepository struct {
	mu       sync.Mutex
	counters map[string]quota.Counter
}

func NewQuotaMemoryRepository() *QuotaMemoryRepository {
	return &QuotaMemoryRepository{counters: make(map[string]quota.Counter)}
}

func (repo *QuotaMemoryRepository) CheckAndIncrement(_ context.Context, identity string, limits quota.Limits, policy quota.Policy, now time.Time) (*quota.Counter, quota.Decision, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	cur, ok := repo.counters[identity]
	if !ok {
		cur = quota.Counter{Identity: identity}
	}
	next, d := quota.Evaluate(cur, limits, policy, now)
	if d.Allowed {
		repo.counters[identity] = next
	}
	return &next, d, nil
}

func (repo *QuotaMemoryRepository) Get(_ context.Context, identity string) (*quota.Counter, bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	c, ok := repo.counters[identity]
	if !ok {
		return nil, false, nil
	}
	return &c, true, nil
}
