// Package tiered combines an in-process L1 cache with a shared L2 cache.
package tiered

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

// Cache reads L1 then L2, backfilling L1 on an L2 hit. Writes and deletes go to both levels.
// L1 failures never fail a call; L2 is the source of truth.
type Cache struct {
	l1       ports.Cache
	l2       ports.Cache
	l1Expire time.Duration
	logger   *logrus.Logger
}

// New creates a tiered cache. l1Expire caps how long any entry lives in L1.
func New(l1, l2 ports.Cache, l1Expire time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire, logger: logger}
}

func (c *Cache) l1TTL(ttl time.Duration) time.Duration {
	if c.l1Expire > 0 && (ttl <= 0 || ttl > c.l1Expire) {
		return c.l1Expire
	}
	return ttl
}

func (c *Cache) warn(op, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WithFields(logrus.Fields{"op": op, "key": key, "error": err}).Warn("l1 cache error")
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		c.warn("get", key, err)
	} else if found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	if err := c.l1.Set(ctx, key, val, c.l1Expire); err != nil {
		c.warn("backfill", key, err)
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if err := c.l1.Set(ctx, key, value, c.l1TTL(ttl)); err != nil {
		c.warn("set", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l1.Delete(ctx, key); err != nil {
		c.warn("delete", key, err)
	}
	return c.l2.Delete(ctx, key)
}
