package health

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	infraDB "github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/db"
)

// dbHealthChecker wraps the quota database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// natsHealthChecker round-trips a flush to the server.
type natsHealthChecker struct{ conn *nats.Conn }

func (n *natsHealthChecker) Name() string { return "nats" }
func (n *natsHealthChecker) Check(ctx context.Context) error {
	if !n.conn.IsConnected() {
		return errors.New("nats: not connected")
	}
	return n.conn.FlushWithContext(ctx)
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewNATSHealthChecker creates a health checker for the NATS connection behind the KV cache.
func NewNATSHealthChecker(conn *nats.Conn) ports.HealthChecker {
	return &natsHealthChecker{conn: conn}
}
