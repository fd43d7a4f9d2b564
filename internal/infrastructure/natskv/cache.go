// Package natskv implements ports.Cache on a NATS JetStream key-value bucket.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Cache stores entries in one bucket. Expiry is the bucket's MaxAge, so it must be
// at least the longest hard TTL written through it.
type Cache struct {
	kv jetstream.KeyValue
}

func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Connect dials NATS and creates or updates the bucket with the given TTL.
func Connect(ctx context.Context, url, bucket string, ttl time.Duration) (*Cache, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("news-nexus"))
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream init: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "news-nexus response cache",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream kv %s: %w", bucket, err)
	}
	return New(kv), nc, nil
}

// KV keys only allow a restricted alphabet; cache keys may carry ':' and escaped query text.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Set ignores ttl; the bucket TTL applies.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, encodeKey(key), value)
	return err
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
