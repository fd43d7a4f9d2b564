package news

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
)

// ProviderID names an article-search upstream.
type ProviderID string

const (
	ProviderGuardian ProviderID = "guardian"
	ProviderNewsAPI  ProviderID = "newsapi"
	ProviderRSS      ProviderID = "rss"
)

func ParseProvider(s string) (ProviderID, error) {
	switch p := ProviderID(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGuardian, ProviderNewsAPI, ProviderRSS:
		return p, nil
	case "":
		return ProviderGuardian, nil
	default:
		return "", apperr.InvalidQuery("unknown provider %q", s)
	}
}

// TimeRange is a look-back window ending now.
type TimeRange string

const (
	Range1h  TimeRange = "1h"
	Range6h  TimeRange = "6h"
	Range12h TimeRange = "12h"
	Range24h TimeRange = "24h"
	Range3d  TimeRange = "3d"
	Range7d  TimeRange = "7d"
)

var rangeDurations = map[TimeRange]time.Duration{
	Range1h:  time.Hour,
	Range6h:  6 * time.Hour,
	Range12h: 12 * time.Hour,
	Range24h: 24 * time.Hour,
	Range3d:  72 * time.Hour,
	Range7d:  168 * time.Hour,
}

func (r TimeRange) Duration() time.Duration { return rangeDurations[r] }

func (r TimeRange) Valid() bool {
	_, ok := rangeDurations[r]
	return ok
}

// Window returns the [from, to] interval covered by r at now.
func (r TimeRange) Window(now time.Time) (from, to time.Time) {
	return now.Add(-r.Duration()), now
}

const (
	DefaultPageSize = 30
	MaxPageSize     = 50
	MaxArticles     = 30
)

// Query is the normalized article search request. Two queries with equal fields share a cache entry.
type Query struct {
	Provider  ProviderID `json:"provider"`
	Topic     string     `json:"topic"`
	Search    string     `json:"search,omitempty"`
	TimeRange TimeRange  `json:"time"`
	Location  string     `json:"location,omitempty"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}

func defaultTopic(p ProviderID) string {
	if p == ProviderNewsAPI {
		return "general"
	}
	return "all"
}

// Normalize canonicalizes q in place and rejects malformed values.
// Provider specific vocabularies (topics, locations) are checked by the provider itself.
func (q *Query) Normalize() error {
	if q.Provider == "" {
		q.Provider = ProviderGuardian
	}
	q.Topic = strings.ToLower(strings.TrimSpace(q.Topic))
	if q.Topic == "" {
		q.Topic = defaultTopic(q.Provider)
	}
	q.Search = strings.Join(strings.Fields(q.Search), " ")
	if q.TimeRange == "" {
		q.TimeRange = Range24h
	}
	if !q.TimeRange.Valid() {
		return apperr.InvalidQuery("unsupported time range %q", q.TimeRange)
	}
	q.Location = strings.ToLower(strings.TrimSpace(q.Location))
	if q.Provider == ProviderNewsAPI && q.Location == "" {
		q.Location = "world"
	}
	if q.Provider != ProviderNewsAPI {
		q.Location = ""
	}
	if q.Page < 0 {
		return apperr.InvalidQuery("page must not be negative")
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize < 0 || q.PageSize > MaxPageSize {
		return apperr.InvalidQuery("page size must be between 1 and %d", MaxPageSize)
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	return nil
}

// CacheKey is a deterministic function of the normalized query.
func (q Query) CacheKey() string {
	return fmt.Sprintf("news:%s:%s:%s:%s:%d:%d:%s",
		q.Provider, q.Topic, q.TimeRange, q.Location, q.Page, q.PageSize, url.QueryEscape(q.Search))
}

// ParseQuery builds a query from URL parameters as sent by the route layer.
func ParseQuery(v url.Values) (Query, error) {
	p, err := ParseProvider(v.Get("provider"))
	if err != nil {
		return Query{}, err
	}
	q := Query{
		Provider:  p,
		Topic:     v.Get("topic"),
		Search:    v.Get("q"),
		TimeRange: TimeRange(v.Get("time")),
		Location:  v.Get("location"),
	}
	if s := v.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil {
			return Query{}, apperr.InvalidQuery("page must be a number")
		}
	}
	if s := v.Get("pageSize"); s != "" {
		if q.PageSize, err = strconv.Atoi(s); err != nil {
			return Query{}, apperr.InvalidQuery("pageSize must be a number")
		}
	}
	return q, q.Normalize()
}
