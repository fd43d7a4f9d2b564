package providers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
)

// RateLimitHeaders names the headers a provider uses to report its own quota.
type RateLimitHeaders struct {
	Limit     string
	Remaining string
	// Reset carries a Unix timestamp in seconds.
	Reset string
}

// Parse reads the rate-limit headers present in h; absent or malformed values stay zero.
func (n RateLimitHeaders) Parse(h http.Header) news.RateLimitInfo {
	var info news.RateLimitInfo
	if n.Limit != "" {
		info.Limit = headerInt(h, n.Limit)
	}
	if n.Remaining != "" {
		info.Remaining = headerInt(h, n.Remaining)
	}
	if n.Reset != "" {
		if secs := headerInt(h, n.Reset); secs > 0 {
			info.ResetAt = time.Unix(int64(secs), 0)
		}
	}
	info.RetryAfter = RetryAfter(h, time.Now())
	return info
}

func headerInt(h http.Header, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(h.Get(name)))
	if err != nil {
		return 0
	}
	return v
}

// RetryAfter parses a Retry-After header given either in seconds or as an HTTP date.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
