package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/Hafiz-Al-Shams/news-nexus/internal/application/services"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/test/mocks"
)

func newsService(h *harness, providers ...ports.ArticleProvider) *impl.NewsService {
	ttls := map[news.ProviderID]time.Duration{news.ProviderNewsAPI: 15 * time.Minute}
	return impl.NewNewsService(h.orch, providers, ttls, quota.Limits{WindowMax: 10, DailyMax: 100}, quietLogger())
}

func TestNewsService_ResolveCachesByNormalizedQuery(t *testing.T) {
	h := newHarness(t, time.Second)
	calls := 0
	provider := &mocks.ArticleProviderMock{
		Provider: news.ProviderNewsAPI,
		FetchArticlesFn: func(ctx context.Context, q news.Query) (*news.Result, error) {
			calls++
			assert.Equal(t, "technology", q.Topic)
			assert.Equal(t, news.Range24h, q.TimeRange)
			assert.Equal(t, "world", q.Location)
			return &news.Result{
				Provider: news.ProviderNewsAPI,
				Articles: []news.Article{{Title: "Chips", URL: "https://example.com/chips"}},
				Count:    1,
			}, nil
		},
	}
	svc := newsService(h, provider)

	first, err := svc.Resolve(context.Background(), "alice", news.Query{Provider: news.ProviderNewsAPI, Topic: "Technology", TimeRange: news.Range24h})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.NotNil(t, first.ExpiresAt)
	assert.Equal(t, h.clock.Now().Add(15*time.Minute), *first.ExpiresAt)

	h.clock.Advance(time.Second)
	second, err := svc.Resolve(context.Background(), "alice", news.Query{Provider: news.ProviderNewsAPI, Topic: " technology "})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "Chips", second.Result.Articles[0].Title)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, h.windowCount(t, "alice"))
}

func TestNewsService_ProviderNoteIsSurfaced(t *testing.T) {
	h := newHarness(t, time.Second)
	provider := &mocks.ArticleProviderMock{
		Provider: news.ProviderNewsAPI,
		FetchArticlesFn: func(ctx context.Context, q news.Query) (*news.Result, error) {
			return &news.Result{Provider: news.ProviderNewsAPI, Note: "Showing latest top headlines"}, nil
		},
	}
	feed, err := newsService(h, provider).Resolve(context.Background(), "alice", news.Query{Provider: news.ProviderNewsAPI})
	require.NoError(t, err)
	assert.Equal(t, "Showing latest top headlines", feed.Note)
}

func TestNewsService_ValidationHappensBeforeQuota(t *testing.T) {
	h := newHarness(t, time.Second)
	provider := &mocks.ArticleProviderMock{
		Provider: news.ProviderGuardian,
		ValidateQueryFn: func(q news.Query) error {
			return apperr.InvalidQuery("unknown topic %q", q.Topic)
		},
		FetchArticlesFn: func(ctx context.Context, q news.Query) (*news.Result, error) {
			t.Error("provider must not be called")
			return nil, errors.New("unreachable")
		},
	}
	svc := newsService(h, provider)

	_, err := svc.Resolve(context.Background(), "alice", news.Query{Provider: news.ProviderGuardian, Topic: "cooking"})
	require.ErrorIs(t, err, apperr.ErrInvalidQuery)

	_, err = svc.Resolve(context.Background(), "alice", news.Query{Provider: news.ProviderRSS})
	require.ErrorIs(t, err, apperr.ErrInvalidQuery)

	_, err = svc.Resolve(context.Background(), "alice", news.Query{Provider: news.ProviderGuardian, TimeRange: "2w"})
	require.ErrorIs(t, err, apperr.ErrInvalidQuery)

	_, err = svc.Resolve(context.Background(), "", news.Query{Provider: news.ProviderGuardian})
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	assert.Zero(t, h.windowCount(t, "alice"))
}

func TestNewsService_UpstreamErrorPropagates(t *testing.T) {
	h := newHarness(t, time.Second)
	provider := &mocks.ArticleProviderMock{
		Provider: news.ProviderGuardian,
		FetchArticlesFn: func(ctx context.Context, q news.Query) (*news.Result, error) {
			return nil, apperr.Unauthorized("guardian", "invalid api key")
		},
	}
	_, err := newsService(h, provider).Resolve(context.Background(), "alice", news.Query{})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}
