package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/news"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/httpserver/helpers"
)

type newsFilters struct {
	Topic    string         `json:"topic"`
	Time     news.TimeRange `json:"time"`
	Location string         `json:"location,omitempty"`
	Search   string         `json:"search,omitempty"`
	Page     int            `json:"page"`
}

type newsResponse struct {
	Success   bool               `json:"success"`
	Provider  news.ProviderID    `json:"provider"`
	Articles  []news.Article     `json:"articles"`
	Count     int                `json:"count"`
	Filters   newsFilters        `json:"filters"`
	RateLimit news.RateLimitInfo `json:"rateLimit"`
	ports.Freshness
}

func (s *Server) getNews(c echo.Context) error {
	identity, err := helpers.GetIdentityFromContext(c)
	if err != nil {
		return err
	}
	q, err := news.ParseQuery(c.QueryParams())
	if err != nil {
		return err
	}
	feed, err := s.newsSvc.Resolve(c.Request().Context(), identity, q)
	if err != nil {
		return err
	}
	articles := feed.Result.Articles
	if articles == nil {
		articles = []news.Article{}
	}
	return c.JSON(http.StatusOK, newsResponse{
		Success:  true,
		Provider: feed.Result.Provider,
		Articles: articles,
		Count:    len(articles),
		Filters: newsFilters{
			Topic:    q.Topic,
			Time:     q.TimeRange,
			Location: q.Location,
			Search:   q.Search,
			Page:     q.Page,
		},
		RateLimit: feed.Result.RateLimit,
		Freshness: feed.Freshness,
	})
}
