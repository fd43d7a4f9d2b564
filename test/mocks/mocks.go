package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/chat"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/summary"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

// MemoryCache is a map-backed ports.Cache. Expiry is ignored; entry classification is
// driven by the envelope timestamps, not the backend.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	TTLs  map[string]time.Duration

	GetErr error
	SetErr error
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	b, ok := m.items[key]
	return b, ok, nil
}
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.items[key] = append([]byte(nil), value...)
	m.TTLs[key] = ttl
	return nil
}
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	delete(m.TTLs, key)
	return nil
}

// ArticleProviderMock is a lightweight mock for ArticleProvider
type ArticleProviderMock struct {
	Provider        news.ProviderID
	ValidateQueryFn func(q news.Query) error
	FetchArticlesFn func(ctx context.Context, q news.Query) (*news.Result, error)
}

func (m *ArticleProviderMock) ID() news.ProviderID {
	if m.Provider == "" {
		return news.ProviderGuardian
	}
	return m.Provider
}
func (m *ArticleProviderMock) ValidateQuery(q news.Query) error {
	if m.ValidateQueryFn != nil {
		return m.ValidateQueryFn(q)
	}
	return nil
}
func (m *ArticleProviderMock) FetchArticles(ctx context.Context, q news.Query) (*news.Result, error) {
	if m.FetchArticlesFn != nil {
		return m.FetchArticlesFn(ctx, q)
	}
	return &news.Result{Provider: m.ID()}, nil
}

// TextGeneratorMock is a lightweight mock for TextGenerator
type TextGeneratorMock struct {
	GenerateTextFn       func(ctx context.Context, prompt string, history []chat.Message) (string, error)
	GenerateStructuredFn func(ctx context.Context, prompt string, out any) error
	GenerateListFn       func(ctx context.Context, prompt string, n int) ([]string, error)
}

func (m *TextGeneratorMock) GenerateText(ctx context.Context, prompt string, history []chat.Message) (string, error) {
	if m.GenerateTextFn != nil {
		return m.GenerateTextFn(ctx, prompt, history)
	}
	return "", nil
}
func (m *TextGeneratorMock) GenerateStructured(ctx context.Context, prompt string, out any) error {
	if m.GenerateStructuredFn != nil {
		return m.GenerateStructuredFn(ctx, prompt, out)
	}
	return nil
}
func (m *TextGeneratorMock) GenerateList(ctx context.Context, prompt string, n int) ([]string, error) {
	if m.GenerateListFn != nil {
		return m.GenerateListFn(ctx, prompt, n)
	}
	return nil, fmt.Errorf("not implemented")
}

// QuotaServiceMock is a lightweight mock for QuotaService
type QuotaServiceMock struct {
	CheckAndIncrementFn func(ctx context.Context, identity string, limits quota.Limits) (*quota.Counter, error)
	PeekFn              func(ctx context.Context, identity string) (*quota.Counter, error)
}

func (m *QuotaServiceMock) CheckAndIncrement(ctx context.Context, identity string, limits quota.Limits) (*quota.Counter, error) {
	if m.CheckAndIncrementFn != nil {
		return m.CheckAndIncrementFn(ctx, identity, limits)
	}
	return &quota.Counter{Identity: identity}, nil
}
func (m *QuotaServiceMock) Peek(ctx context.Context, identity string) (*quota.Counter, error) {
	if m.PeekFn != nil {
		return m.PeekFn(ctx, identity)
	}
	return &quota.Counter{Identity: identity}, nil
}

// IdentityVerifierMock is a lightweight mock for IdentityVerifier
type IdentityVerifierMock struct {
	VerifyFn func(ctx context.Context, token string) (string, error)
}

func (m *IdentityVerifierMock) Verify(ctx context.Context, token string) (string, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, token)
	}
	return token, nil
}

// NewsServiceMock is a lightweight mock for NewsService
type NewsServiceMock struct {
	ResolveFn func(ctx context.Context, identity string, q news.Query) (*ports.NewsFeed, error)
}

func (m *NewsServiceMock) Resolve(ctx context.Context, identity string, q news.Query) (*ports.NewsFeed, error) {
	if m.ResolveFn != nil {
		return m.ResolveFn(ctx, identity, q)
	}
	return &ports.NewsFeed{Result: &news.Result{Provider: q.Provider}}, nil
}

// BulletinServiceMock is a lightweight mock for BulletinService
type BulletinServiceMock struct {
	LatestFn func(ctx context.Context, identity string) (*ports.BulletinView, error)
	ExpandFn func(ctx context.Context, identity string, bullets []string) (*ports.CardsView, error)
}

func (m *BulletinServiceMock) Latest(ctx context.Context, identity string) (*ports.BulletinView, error) {
	if m.LatestFn != nil {
		return m.LatestFn(ctx, identity)
	}
	return nil, fmt.Errorf("not implemented")
}
func (m *BulletinServiceMock) Expand(ctx context.Context, identity string, bullets []string) (*ports.CardsView, error) {
	if m.ExpandFn != nil {
		return m.ExpandFn(ctx, identity, bullets)
	}
	return nil, fmt.Errorf("not implemented")
}

// SummaryServiceMock is a lightweight mock for SummaryService
type SummaryServiceMock struct {
	SummarizeFn func(ctx context.Context, identity string, req summary.Request) (*ports.SummaryView, error)
}

func (m *SummaryServiceMock) Summarize(ctx context.Context, identity string, req summary.Request) (*ports.SummaryView, error) {
	if m.SummarizeFn != nil {
		return m.SummarizeFn(ctx, identity, req)
	}
	return nil, fmt.Errorf("not implemented")
}

// ChatServiceMock is a lightweight mock for ChatService
type ChatServiceMock struct {
	ReplyFn func(ctx context.Context, identity, message string, history []chat.Message) (*chat.Reply, error)
}

func (m *ChatServiceMock) Reply(ctx context.Context, identity, message string, history []chat.Message) (*chat.Reply, error) {
	if m.ReplyFn != nil {
		return m.ReplyFn(ctx, identity, message, history)
	}
	return &chat.Reply{}, nil
}

// RateLimiterMock is a lightweight mock for RateLimiterService
type RateLimiterMock struct {
	AllowFn func(ctx context.Context, key string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterMock) Allow(ctx context.Context, key string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, key)
	}
	return true, 100, 100, time.Now().Add(time.Minute), nil
}

// MetricsRecorderMock counts events by label.
type MetricsRecorderMock struct {
	mu       sync.Mutex
	Outcomes map[string]int
	Upstream map[string]int
	Rejected map[string]int
}

func (m *MetricsRecorderMock) ResolveOutcome(kind, outcome string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Outcomes == nil {
		m.Outcomes = map[string]int{}
	}
	m.Outcomes[kind+"/"+outcome]++
}
func (m *MetricsRecorderMock) UpstreamCall(provider, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Upstream == nil {
		m.Upstream = map[string]int{}
	}
	m.Upstream[provider+"/"+result]++
}
func (m *MetricsRecorderMock) QuotaRejected(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Rejected == nil {
		m.Rejected = map[string]int{}
	}
	m.Rejected[scope]++
}

// Outcome returns the count for kind/outcome.
func (m *MetricsRecorderMock) Outcome(kind, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Outcomes[kind+"/"+outcome]
}

var (
	_ ports.Cache              = (*MemoryCache)(nil)
	_ ports.ArticleProvider    = (*ArticleProviderMock)(nil)
	_ ports.TextGenerator      = (*TextGeneratorMock)(nil)
	_ ports.QuotaService       = (*QuotaServiceMock)(nil)
	_ ports.IdentityVerifier   = (*IdentityVerifierMock)(nil)
	_ ports.NewsService        = (*NewsServiceMock)(nil)
	_ ports.BulletinService    = (*BulletinServiceMock)(nil)
	_ ports.SummaryService     = (*SummaryServiceMock)(nil)
	_ ports.ChatService        = (*ChatServiceMock)(nil)
	_ ports.RateLimiterService = (*RateLimiterMock)(nil)
	_ ports.MetricsRecorder    = (*MetricsRecorderMock)(nil)
)
