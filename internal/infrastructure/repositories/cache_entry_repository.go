package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/cache"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

// CacheEntryRepository implements ports.EntryStore as JSON envelopes in a byte cache.
// The backend expiry is set to the hard TTL, so the backend purges what the store would
// classify as Absent; reads that still find such an envelope delete it.
type CacheEntryRepository struct {
	c              ports.Cache
	hardMultiplier float64
	now            func() time.Time
	logger         *logrus.Logger
}

func NewCacheEntryRepository(c ports.Cache, hardMultiplier float64, logger *logrus.Logger) *CacheEntryRepository {
	if hardMultiplier < 1 {
		hardMultiplier = 1
	}
	return &CacheEntryRepository{c: c, hardMultiplier: hardMultiplier, now: time.Now, logger: logger}
}

// WithClock replaces the time source; used by tests.
func (r *CacheEntryRepository) WithClock(now func() time.Time) *CacheEntryRepository {
	r.now = now
	return r
}

func (r *CacheEntryRepository) Get(ctx context.Context, key string) (*cache.Entry, cache.State, error) {
	b, ok, err := r.c.Get(ctx, key)
	if err != nil {
		return nil, cache.Absent, fmt.Errorf("cache get %s: %w", key, err)
	}
	if !ok {
		return nil, cache.Absent, nil
	}
	var e cache.Entry
	if err := json.Unmarshal(b, &e); err != nil {
		r.purge(ctx, key, "undecodable")
		return nil, cache.Absent, nil
	}
	st := cache.Classify(&e, r.now())
	if st == cache.Absent {
		r.purge(ctx, key, "hard_expired")
		return nil, cache.Absent, nil
	}
	return &e, st, nil
}

func (r *CacheEntryRepository) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) (*cache.Entry, error) {
	hard := time.Duration(float64(ttl) * r.hardMultiplier)
	e, err := cache.NewEntry(key, payload, r.now(), ttl, hard)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.c.Set(ctx, key, b, e.HardExpiresAt.Sub(e.FetchedAt)); err != nil {
		return nil, fmt.Errorf("cache set %s: %w", key, err)
	}
	return e, nil
}

func (r *CacheEntryRepository) purge(ctx context.Context, key, reason string) {
	err := r.c.Delete(ctx, key)
	if r.logger == nil {
		return
	}
	fields := logrus.Fields{"key": key, "reason": reason}
	if err != nil && !errors.Is(err, context.Canceled) {
		fields["error"] = err
		r.logger.WithFields(fields).Warn("cache purge failed")
		return
	}
	r.logger.WithFields(fields).Debug("cache entry purged")
}
