// Package guardian adapts the Guardian content search API to ports.ArticleProvider.
package guardian

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers"
)

const name = string(news.ProviderGuardian)

type section struct {
	Section string
	Tag     string
}

// Topics lists the accepted topic values and the section or tag each one maps to.
var Topics = map[string]section{
	"all":         {},
	"politics":    {Section: "politics"},
	"business":    {Section: "business"},
	"technology":  {Section: "technology"},
	"environment": {Section: "environment"},
	"sport":       {Section: "sport"},
	"health":      {Section: "society", Tag: "society/health"},
	"science":     {Section: "science"},
	"education":   {Section: "education"},
	"books":       {Section: "books"},
	"travel":      {Section: "travel"},
}

// errorStatuses maps Guardian HTTP statuses; its error bodies carry only a message.
var errorStatuses = map[int]apperr.Code{
	http.StatusBadRequest:          apperr.CodeInvalidQuery,
	http.StatusUnauthorized:        apperr.CodeUnauthorized,
	http.StatusForbidden:           apperr.CodeUnauthorized,
	http.StatusTooManyRequests:     apperr.CodeRateLimited,
	http.StatusInternalServerError: apperr.CodeUpstreamUnavailable,
	http.StatusBadGateway:          apperr.CodeUpstreamUnavailable,
	http.StatusServiceUnavailable:  apperr.CodeUpstreamUnavailable,
	http.StatusGatewayTimeout:      apperr.CodeUpstreamUnavailable,
}

var rateLimitHeaders = providers.RateLimitHeaders{
	Limit:     "X-RateLimit-Limit-day",
	Remaining: "X-RateLimit-Remaining-day",
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	caller  *providers.Caller
	logger  *logrus.Logger
	now     func() time.Time
}

var _ ports.ArticleProvider = (*Client)(nil)

func NewClient(baseURL, apiKey string, caller *providers.Caller, logger *logrus.Logger) *Client {
	caller.Provider = name
	caller.Table = providers.ErrorTable{Provider: name, ByStatus: errorStatuses}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		caller:  caller,
		logger:  logger,
		now:     time.Now,
	}
}

func (c *Client) ID() news.ProviderID { return news.ProviderGuardian }

func (c *Client) ValidateQuery(q news.Query) error {
	if _, ok := Topics[q.Topic]; !ok {
		return apperr.InvalidQuery("unsupported guardian topic %q", q.Topic)
	}
	return nil
}

type searchResponse struct {
	Response struct {
		Status  string   `json:"status"`
		Message string   `json:"message"`
		Results []result `json:"results"`
	} `json:"response"`
}

type result struct {
	WebTitle           string `json:"webTitle"`
	WebURL             string `json:"webUrl"`
	WebPublicationDate string `json:"webPublicationDate"`
	Fields             struct {
		TrailText string `json:"trailText"`
		BodyText  string `json:"bodyText"`
		Thumbnail string `json:"thumbnail"`
		Byline    string `json:"byline"`
	} `json:"fields"`
}

func (c *Client) FetchArticles(ctx context.Context, q news.Query) (*news.Result, error) {
	if err := c.ValidateQuery(q); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(q), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnknown, name, err)
	}

	resp, err := c.caller.Do(ctx, req, decodeError)
	if err != nil {
		return nil, err
	}

	var body searchResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, apperr.UpstreamUnavailable(name, fmt.Errorf("decode search response: %w", err))
	}
	if body.Response.Status != "ok" {
		return nil, apperr.UpstreamUnavailable(name, fmt.Errorf("search status %q: %s", body.Response.Status, body.Response.Message))
	}

	articles := make([]news.Article, 0, len(body.Response.Results))
	for _, r := range body.Response.Results {
		articles = append(articles, toArticle(r))
	}
	articles = news.NormalizeArticles(articles, min(q.PageSize, news.MaxArticles))

	info := rateLimitHeaders.Parse(resp.Header)
	c.logger.WithFields(logrus.Fields{
		"provider":  name,
		"topic":     q.Topic,
		"time":      q.TimeRange,
		"fetched":   len(body.Response.Results),
		"returned":  len(articles),
		"remaining": info.Remaining,
	}).Debug("Guardian search completed")

	return &news.Result{
		Provider:  news.ProviderGuardian,
		Articles:  articles,
		Count:     len(articles),
		RateLimit: info,
	}, nil
}

func (c *Client) searchURL(q news.Query) string {
	from, to := q.TimeRange.Window(c.now().UTC())
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if s := Topics[q.Topic]; s.Section != "" {
		v.Set("section", s.Section)
		if s.Tag != "" {
			v.Set("tag", s.Tag)
		}
	}
	orderBy := "newest"
	if q.Search != "" {
		orderBy = "relevance"
	}
	v.Set("from-date", from.Format(time.RFC3339))
	v.Set("to-date", to.Format(time.RFC3339))
	v.Set("page-size", strconv.Itoa(q.PageSize))
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("order-by", orderBy)
	v.Set("show-fields", "trailText,bodyText,thumbnail,byline")
	v.Set("edition", "international")
	v.Set("format", "json")
	v.Set("api-key", c.apiKey)
	return c.baseURL + "/search?" + v.Encode()
}

var tags = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(tags.ReplaceAllString(s, "")))
}

func toArticle(r result) news.Article {
	desc := stripHTML(r.Fields.TrailText)
	if desc == "" {
		desc = news.Excerpt(r.Fields.BodyText, 200)
	}
	author := r.Fields.Byline
	if author == "" {
		author = "The Guardian"
	}
	published, _ := time.Parse(time.RFC3339, r.WebPublicationDate)
	return news.Article{
		Title:       r.WebTitle,
		Description: desc,
		URL:         r.WebURL,
		ImageURL:    r.Fields.Thumbnail,
		PublishedAt: published,
		Source:      news.Source{ID: "the-guardian", Name: "The Guardian"},
		Author:      author,
		Content:     r.Fields.BodyText,
	}
}

func decodeError(body []byte) (string, string) {
	var e struct {
		Message  string `json:"message"`
		Response struct {
			Message string `json:"message"`
		} `json:"response"`
	}
	if json.Unmarshal(body, &e) != nil {
		return "", ""
	}
	if e.Response.Message != "" {
		return "", e.Response.Message
	}
	return "", e.Message
}
