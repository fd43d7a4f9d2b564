package news

import (
	"sort"
	"strings"
	"time"
)

type Source struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Article is the provider-neutral shape of one news item.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      Source    `json:"source"`
	Author      string    `json:"author,omitempty"`
	Content     string    `json:"content,omitempty"`
}

// RateLimitInfo captures upstream quota headers observed on the last call. Zero values mean unknown.
type RateLimitInfo struct {
	Limit      int           `json:"limit,omitempty"`
	Remaining  int           `json:"remaining,omitempty"`
	ResetAt    time.Time     `json:"resetAt,omitempty"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}

// Result is the payload cached for one query.
type Result struct {
	Provider  ProviderID    `json:"provider"`
	Articles  []Article     `json:"articles"`
	Count     int           `json:"count"`
	RateLimit RateLimitInfo `json:"rateLimit"`
	Note      string        `json:"note,omitempty"`
}

const removedTitle = "[Removed]"

// NormalizeArticles drops removed or untitled items, dedupes by title keeping the first
// occurrence, orders newest first and caps the list at limit (limit <= 0 means no cap).
func NormalizeArticles(in []Article, limit int) []Article {
	seen := make(map[string]struct{}, len(in))
	out := make([]Article, 0, len(in))
	for _, a := range in {
		title := strings.TrimSpace(a.Title)
		if title == "" || title == removedTitle || a.URL == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		a.Title = title
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Excerpt trims s to at most n runes, appending "..." when cut.
func Excerpt(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
