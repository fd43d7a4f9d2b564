// Package newsapi adapts newsapi.org to ports.ArticleProvider.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers"
)

const (
	name = string(news.ProviderNewsAPI)

	// FallbackNote marks results served from top headlines after an empty search.
	FallbackNote = "Showing latest top headlines"
)

var Topics = map[string]bool{
	"general":       true,
	"business":      true,
	"entertainment": true,
	"health":        true,
	"science":       true,
	"sports":        true,
	"technology":    true,
}

// Locations maps a region to the ISO 3166-1 countries used for top headlines.
var Locations = map[string][]string{
	"world":   {"us", "gb", "ca", "au", "in"},
	"asia":    {"in", "jp", "kr", "sg", "th"},
	"europe":  {"gb", "de", "fr", "it", "nl"},
	"america": {"us", "ca", "mx", "ar", "br"},
}

var errorCodes = map[string]apperr.Code{
	"rateLimited":        apperr.CodeRateLimited,
	"apiKeyDisabled":     apperr.CodeUnauthorized,
	"apiKeyExhausted":    apperr.CodeRateLimited,
	"apiKeyInvalid":      apperr.CodeUnauthorized,
	"apiKeyMissing":      apperr.CodeUnauthorized,
	"parameterInvalid":   apperr.CodeInvalidQuery,
	"parametersMissing":  apperr.CodeInvalidQuery,
	"sourcesTooMany":     apperr.CodeInvalidQuery,
	"sourceDoesNotExist": apperr.CodeInvalidQuery,
	"unexpectedError":    apperr.CodeUpstreamUnavailable,
}

var rateLimitHeaders = providers.RateLimitHeaders{
	Limit:     "X-RateLimit-Limit",
	Remaining: "X-RateLimit-Remaining",
	Reset:     "X-RateLimit-Reset",
}

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
	caller.Table = providers.ErrorTable{Provider: name, ByCode: errorCodes}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		caller:  caller,
		logger:  logger,
		now:     time.Now,
	}
}

func (c *Client) ID() news.ProviderID { return news.ProviderNewsAPI }

func (c *Client) ValidateQuery(q news.Query) error {
	if !Topics[q.Topic] {
		return apperr.InvalidQuery("unsupported newsapi topic %q", q.Topic)
	}
	if _, ok := Locations[q.Location]; !ok {
		return apperr.InvalidQuery("unsupported location %q", q.Location)
	}
	return nil
}

type articlesResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Author      string    `json:"author"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		URLToImage  string    `json:"urlToImage"`
		PublishedAt time.Time `json:"publishedAt"`
		Content     string    `json:"content"`
	} `json:"articles"`
}

func (c *Client) FetchArticles(ctx context.Context, q news.Query) (*news.Result, error) {
	if err := c.ValidateQuery(q); err != nil {
		return nil, err
	}
	limit := min(q.PageSize, news.MaxArticles)

	body, info, err := c.get(ctx, "/everything", c.everythingParams(q))
	if err != nil {
		return nil, err
	}
	articles := news.NormalizeArticles(toArticles(body), limit)
	if len(articles) > 0 {
		return &news.Result{Provider: news.ProviderNewsAPI, Articles: articles, Count: len(articles), RateLimit: info}, nil
	}

	c.logger.WithFields(logrus.Fields{
		"provider": name,
		"topic":    q.Topic,
		"location": q.Location,
	}).Info("Search returned no usable articles, falling back to top headlines")

	body, info, err = c.get(ctx, "/top-headlines", c.headlineParams(q))
	if err != nil {
		return nil, err
	}
	articles = news.NormalizeArticles(toArticles(body), limit)
	return &news.Result{
		Provider:  news.ProviderNewsAPI,
		Articles:  articles,
		Count:     len(articles),
		RateLimit: info,
		Note:      FallbackNote,
	}, nil
}

func (c *Client) everythingParams(q news.Query) url.Values {
	from, to := q.TimeRange.Window(c.now().UTC())
	terms := []string{"news"}
	if q.Topic != "general" {
		terms = append(terms, q.Topic)
	}
	if q.Search != "" {
		terms = append(terms, q.Search)
	}
	v := url.Values{}
	v.Set("q", strings.Join(terms, " "))
	v.Set("language", "en")
	v.Set("from", from.Format(time.RFC3339))
	v.Set("to", to.Format(time.RFC3339))
	v.Set("sortBy", "publishedAt")
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	v.Set("page", strconv.Itoa(q.Page))
	return v
}

func (c *Client) headlineParams(q news.Query) url.Values {
	v := url.Values{}
	v.Set("country", Locations[q.Location][0])
	if q.Topic != "general" {
		v.Set("category", q.Topic)
	}
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	return v
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*articlesResponse, news.RateLimitInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, news.RateLimitInfo{}, apperr.Wrap(apperr.CodeUnknown, name, err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.caller.Do(ctx, req, decodeError)
	if err != nil {
		return nil, news.RateLimitInfo{}, err
	}
	info := rateLimitHeaders.Parse(resp.Header)

	var body articlesResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, info, apperr.UpstreamUnavailable(name, fmt.Errorf("decode %s: %w", path, err))
	}
	// newsapi can report errors with a 200 status.
	if body.Status == "error" {
		return nil, info, c.caller.Table.Classify(resp.Status, body.Code, body.Message, info.RetryAfter)
	}
	return &body, info, nil
}

// toArticles keeps only items that carry an image, a link, a title and a description.
func toArticles(body *articlesResponse) []news.Article {
	out := make([]news.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.URLToImage == "" || a.URL == "" || a.Title == "" || a.Description == "" {
			continue
		}
		out = append(out, news.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			PublishedAt: a.PublishedAt,
			Source:      news.Source{ID: a.Source.ID, Name: a.Source.Name},
			Author:      a.Author,
			Content:     a.Content,
		})
	}
	return out
}

func decodeError(body []byte) (string, string) {
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil {
		return "", ""
	}
	return e.Code, e.Message
}
