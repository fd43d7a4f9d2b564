package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
)

// checkAndIncrementScript applies rollover, checks both limits and increments both counters
// in one server-side step. A rejected call writes nothing.
//
// KEYS[1] counter hash
// ARGV now_ms, window_reset_if_rolled_ms, daily_reset_if_rolled_ms, window_max, daily_max
// returns {allowed, scope(0 none, 1 window, 2 day), wc, wr, dc, dr}
var checkAndIncrementScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local v = redis.call('HMGET', KEYS[1], 'wc', 'wr', 'dc', 'dr')
local wc = tonumber(v[1]) or 0
local wr = tonumber(v[2]) or 0
local dc = tonumber(v[3]) or 0
local dr = tonumber(v[4]) or 0
if wr == 0 or now > wr then
  wc = 0
  wr = tonumber(ARGV[2])
end
if dr == 0 or now > dr then
  dc = 0
  dr = tonumber(ARGV[3])
end
local wmax = tonumber(ARGV[4])
local dmax = tonumber(ARGV[5])
if wmax > 0 and wc >= wmax then
  return {0, 1, wc, wr, dc, dr}
end
if dmax > 0 and dc >= dmax then
  return {0, 2, wc, wr, dc, dr}
end
wc = wc + 1
dc = dc + 1
redis.call('HSET', KEYS[1], 'wc', wc, 'wr', wr, 'dc', dc, 'dr', dr)
return {1, 0, wc, wr, dc, dr}
`)

// QuotaRedisRepository keeps one hash per identity without expiry.
type QuotaRedisRepository struct {
	r      redis.Cmdable
	prefix string
}

func NewQuotaRedisRepository(r redis.Cmdable, prefix string) *QuotaRedisRepository {
	if prefix == "" {
		prefix = "quota"
	}
	return &QuotaRedisRepository{r: r, prefix: prefix}
}

func (repo *QuotaRedisRepository) key(identity string) string {
	return repo.prefix + ":" + identity
}

func (repo *QuotaRedisRepository) CheckAndIncrement(ctx context.Context, identity string, limits quota.Limits, policy quota.Policy, now time.Time) (*quota.Counter, quota.Decision, error) {
	reply, err := checkAndIncrementScript.Run(ctx, repo.r, []string{repo.key(identity)},
		now.UnixMilli(),
		policy.NextWindowReset(now).UnixMilli(),
		policy.NextDailyReset(now).UnixMilli(),
		limits.WindowMax,
		limits.DailyMax,
	).Slice()
	if err != nil {
		return nil, quota.Decision{}, fmt.Errorf("quota script: %w", err)
	}
	if len(reply) != 6 {
		return nil, quota.Decision{}, fmt.Errorf("quota script: unexpected reply length %d", len(reply))
	}
	res := make([]int64, len(reply))
	for i, v := range reply {
		n, ok := v.(int64)
		if !ok {
			return nil, quota.Decision{}, fmt.Errorf("quota script: reply %d is %T", i, v)
		}
		res[i] = n
	}
	c := &quota.Counter{
		Identity:      identity,
		WindowCount:   int(res[2]),
		WindowResetAt: time.UnixMilli(res[3]),
		DailyCount:    int(res[4]),
		DailyResetAt:  time.UnixMilli(res[5]),
	}
	d := quota.Decision{Allowed: res[0] == 1}
	switch res[1] {
	case 1:
		d.Scope = quota.ScopeWindow
		d.RetryAfter = c.WindowResetAt.Sub(now)
	case 2:
		d.Scope = quota.ScopeDay
		d.RetryAfter = c.DailyResetAt.Sub(now)
	}
	return c, d, nil
}

func (repo *QuotaRedisRepository) Get(ctx context.Context, identity string) (*quota.Counter, bool, error) {
	vals, err := repo.r.HMGet(ctx, repo.key(identity), "wc", "wr", "dc", "dr").Result()
	if err != nil {
		return nil, false, err
	}
	if vals[1] == nil {
		return nil, false, nil
	}
	n := make([]int64, len(vals))
	for i, v := range vals {
		s, _ := v.(string)
		if n[i], err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, false, fmt.Errorf("quota get: field %d: %w", i, err)
		}
	}
	return &quota.Counter{
		Identity:      identity,
		WindowCount:   int(n[0]),
		WindowResetAt: time.UnixMilli(n[1]),
		DailyCount:    int(n[2]),
		DailyResetAt:  time.UnixMilli(n[3]),
	}, true, nil
}
