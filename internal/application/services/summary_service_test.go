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
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/summary"
	"github.com/Hafiz-Al-Shams/news-nexus/test/mocks"
)

var article = summary.Request{
	Title:       "Central bank holds rates",
	Description: "The central bank kept its benchmark rate unchanged on Thursday.",
	URL:         "https://example.com/rates",
}

func summaryService(h *harness, gen *mocks.TextGeneratorMock) *impl.SummaryService {
	return impl.NewSummaryService(h.orch, gen, quota.Limits{WindowMax: 10, DailyMax: 100}, 24*time.Hour, quietLogger())
}

func TestSummaryService_CachesPerURL(t *testing.T) {
	h := newHarness(t, time.Second)
	calls := 0
	gen := &mocks.TextGeneratorMock{
		GenerateStructuredFn: func(ctx context.Context, prompt string, out any) error {
			calls++
			assert.Contains(t, prompt, "Article Title: Central bank holds rates")
			*(out.(*summary.Summary)) = summary.Summary{Title: "Rates held steady", Content: "The bank paused."}
			return nil
		},
	}
	svc := summaryService(h, gen)

	first, err := svc.Summarize(context.Background(), "alice", article)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.False(t, first.UsedFallback)
	assert.Equal(t, "Rates held steady", first.Summary.Title)

	second, err := svc.Summarize(context.Background(), "bob", article)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, calls)

	_, ok, err := h.backend.Get(context.Background(), impl.SummaryKey(article.URL))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSummaryService_FallbackIsCached(t *testing.T) {
	tests := []struct {
		name string
		fn   func(out any) error
	}{
		{"unparseable output", func(any) error { return apperr.InvalidResponse("gemini", "not json") }},
		{"incomplete summary", func(out any) error {
			*(out.(*summary.Summary)) = summary.Summary{Title: "Only a title"}
			return nil
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, time.Second)
			calls := 0
			gen := &mocks.TextGeneratorMock{
				GenerateStructuredFn: func(ctx context.Context, prompt string, out any) error {
					calls++
					return tc.fn(out)
				},
			}
			svc := summaryService(h, gen)

			view, err := svc.Summarize(context.Background(), "alice", article)
			require.NoError(t, err)
			assert.True(t, view.UsedFallback)
			assert.Equal(t, article.Description, view.Summary.Content)

			again, err := svc.Summarize(context.Background(), "alice", article)
			require.NoError(t, err)
			assert.True(t, again.FromCache)
			assert.True(t, again.UsedFallback)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestSummaryService_UpstreamFailureIsNotCached(t *testing.T) {
	h := newHarness(t, time.Second)
	calls := 0
	gen := &mocks.TextGeneratorMock{
		GenerateStructuredFn: func(ctx context.Context, prompt string, out any) error {
			calls++
			return apperr.UpstreamUnavailable("gemini", errors.New("503"))
		},
	}
	svc := summaryService(h, gen)

	for i := 0; i < 2; i++ {
		_, err := svc.Summarize(context.Background(), "alice", article)
		require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	}
	assert.Equal(t, 2, calls)
}

func TestSummaryService_Validation(t *testing.T) {
	h := newHarness(t, time.Second)
	svc := summaryService(h, &mocks.TextGeneratorMock{})

	_, err := svc.Summarize(context.Background(), "alice", summary.Request{Title: "No url"})
	require.ErrorIs(t, err, apperr.ErrInvalidQuery)

	_, err = svc.Summarize(context.Background(), "", article)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
