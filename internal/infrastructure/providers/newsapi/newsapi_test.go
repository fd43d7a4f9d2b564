package newsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers"
)

func article(title, published string) string {
	return fmt.Sprintf(`{"source":{"id":"src","name":"Source"},"title":%q,"description":"d","url":"https://n.example/%s",
		"urlToImage":"https://img.example/x.jpg","publishedAt":%q}`, title, strings.ReplaceAll(title, " ", "-"), published)
}

func okBody(articles ...string) string {
	return `{"status":"ok","totalResults":` + fmt.Sprint(len(articles)) + `,"articles":[` + strings.Join(articles, ",") + `]}`
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := NewClient(srv.URL, "k", &providers.Caller{HTTP: srv.Client()}, logger)
	c.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func query(t *testing.T, topic, location string) news.Query {
	t.Helper()
	q := news.Query{Provider: news.ProviderNewsAPI, Topic: topic, Location: location}
	require.NoError(t, q.Normalize())
	return q
}

func TestFetchArticles_TechnologyLast24h(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("X-RateLimit-Remaining", "42")
		_, _ = w.Write([]byte(okBody(
			article("Chip news", "2025-03-01T09:00:00Z"),
			article("[Removed]", "2025-03-01T11:00:00Z"),
			article("AI news", "2025-03-01T10:00:00Z"),
			`{"title":"No image","description":"d","url":"https://n.example/ni","publishedAt":"2025-03-01T11:30:00Z"}`,
		)))
	})

	res, err := c.FetchArticles(context.Background(), query(t, "technology", ""))
	require.NoError(t, err)

	assert.Equal(t, "/everything", got.URL.Path)
	assert.Equal(t, "k", got.Header.Get("X-Api-Key"))
	params := got.URL.Query()
	assert.Equal(t, "news technology", params.Get("q"))
	assert.Equal(t, "2025-02-28T12:00:00Z", params.Get("from"))
	assert.Equal(t, "2025-03-01T12:00:00Z", params.Get("to"))
	assert.Equal(t, "publishedAt", params.Get("sortBy"))

	require.Equal(t, 2, res.Count)
	assert.Equal(t, "AI news", res.Articles[0].Title)
	assert.Equal(t, "Chip news", res.Articles[1].Title)
	assert.Empty(t, res.Note)
	assert.Equal(t, 42, res.RateLimit.Remaining)
}

func TestFetchArticles_FallsBackToTopHeadlines(t *testing.T) {
	var paths []string
	var headlineQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/top-headlines" {
			headlineQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(okBody(article("Headline", "2025-03-01T11:00:00Z"))))
			return
		}
		_, _ = w.Write([]byte(okBody()))
	})

	res, err := c.FetchArticles(context.Background(), query(t, "business", "europe"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/everything", "/top-headlines"}, paths)
	assert.Contains(t, headlineQuery, "country=gb")
	assert.Contains(t, headlineQuery, "category=business")
	assert.Equal(t, FallbackNote, res.Note)
	assert.Equal(t, 1, res.Count)
}

func TestFetchArticles_ProviderErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"status":"error","code":"rateLimited","message":"slow"}`, apperr.ErrRateLimited},
		{"invalid key", http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`, apperr.ErrUnauthorized},
		{"bad parameter", http.StatusBadRequest, `{"status":"error","code":"parameterInvalid","message":"from too old"}`, apperr.ErrInvalidQuery},
		{"error with 200", http.StatusOK, `{"status":"error","code":"apiKeyDisabled","message":"disabled"}`, apperr.ErrUnauthorized},
		{"outage", http.StatusServiceUnavailable, `oops`, apperr.ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.FetchArticles(context.Background(), query(t, "general", ""))
			require.ErrorIs(t, err, tt.want)
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, "newsapi", e.Provider)
		})
	}
}

func TestValidateQuery(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
	require.NoError(t, c.ValidateQuery(query(t, "sports", "asia")))
	require.ErrorIs(t, c.ValidateQuery(query(t, "politics", "")), apperr.ErrInvalidQuery)
	require.ErrorIs(t, c.ValidateQuery(query(t, "general", "mars")), apperr.ErrInvalidQuery)
}
