// Package rss serves articles from a fixed set of RSS or Atom feeds.
package rss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers"
)

const (
	name = string(news.ProviderRSS)

	// PartialNote is set when some, but not all, feeds failed.
	PartialNote = "Some feeds could not be fetched"
)

// Fetcher reads every configured feed concurrently. Only the "all" topic is served.
type Fetcher struct {
	feeds   []string
	client  *http.Client
	metrics ports.MetricsRecorder
	logger  *logrus.Logger
	now     func() time.Time
}

var _ ports.ArticleProvider = (*Fetcher)(nil)

func NewFetcher(feeds []string, client *http.Client, metrics ports.MetricsRecorder, logger *logrus.Logger) *Fetcher {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Fetcher{feeds: feeds, client: client, metrics: metrics, logger: logger, now: time.Now}
}

func (f *Fetcher) ID() news.ProviderID { return news.ProviderRSS }

func (f *Fetcher) ValidateQuery(q news.Query) error {
	if q.Topic != "all" {
		return apperr.InvalidQuery("rss feeds only support the \"all\" topic")
	}
	if len(f.feeds) == 0 {
		return apperr.InvalidQuery("no rss feeds are configured")
	}
	return nil
}

type fetchResult struct {
	articles []news.Article
	errs     []error
}

func (f *Fetcher) FetchArticles(ctx context.Context, q news.Query) (*news.Result, error) {
	if err := f.ValidateQuery(q); err != nil {
		return nil, err
	}
	from, _ := q.TimeRange.Window(f.now())
	search := strings.ToLower(q.Search)

	var (
		mu  sync.Mutex
		res fetchResult
		wg  sync.WaitGroup
	)
	for _, url := range f.feeds {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			articles, err := f.fetch(ctx, url, from, search)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.errs = append(res.errs, err)
				return
			}
			res.articles = append(res.articles, articles...)
		}(url)
	}
	wg.Wait()

	if len(res.errs) == len(f.feeds) {
		return nil, res.errs[0]
	}
	articles := news.NormalizeArticles(res.articles, min(q.PageSize, news.MaxArticles))
	out := &news.Result{Provider: news.ProviderRSS, Articles: articles, Count: len(articles)}
	if len(res.errs) > 0 {
		out.Note = PartialNote
		f.logger.WithFields(logrus.Fields{
			"provider": name,
			"failed":   len(res.errs),
			"feeds":    len(f.feeds),
			"error":    errors.Join(res.errs...).Error(),
		}).Warn("Some feeds failed")
	}
	return out, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string, from time.Time, search string) ([]news.Article, error) {
	parser := gofeed.NewParser()
	parser.Client = f.client

	feed, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		err = classify(url, err)
		f.metrics.UpstreamCall(name, string(apperr.CodeOf(err)))
		return nil, err
	}
	f.metrics.UpstreamCall(name, "ok")

	out := make([]news.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		var published time.Time
		switch {
		case item.PublishedParsed != nil:
			published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			published = *item.UpdatedParsed
		default:
			continue
		}
		if published.Before(from) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Title), search) {
			continue
		}
		out = append(out, toArticle(feed, item, published))
	}
	return out, nil
}

func classify(url string, err error) error {
	var he gofeed.HTTPError
	if errors.As(err, &he) {
		return providers.ErrorTable{Provider: name}.Classify(he.StatusCode, "", fmt.Sprintf("%s: %s", url, he.Status), 0)
	}
	return apperr.UpstreamUnavailable(name, fmt.Errorf("fetch %s: %w", url, err))
}

func toArticle(feed *gofeed.Feed, item *gofeed.Item, published time.Time) news.Article {
	desc := item.Description
	if desc == "" {
		desc = item.Content
	}
	a := news.Article{
		Title:       strings.TrimSpace(item.Title),
		Description: news.Excerpt(stripHTML(desc), 300),
		URL:         item.Link,
		PublishedAt: published,
		Source:      news.Source{Name: feed.Title},
		Content:     stripHTML(item.Content),
	}
	if item.Image != nil {
		a.ImageURL = item.Image.URL
	}
	if item.Author != nil {
		a.Author = item.Author.Name
	}
	return a
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
