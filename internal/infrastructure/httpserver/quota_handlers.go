package httpserver

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/httpserver/helpers"
)

type quotaUsage struct {
	Name            string `json:"name"`
	WindowMax       int    `json:"windowMax"`
	WindowRemaining int    `json:"windowRemaining"`
	DailyMax        int    `json:"dailyMax"`
	DailyRemaining  int    `json:"dailyRemaining"`
}

type quotaResponse struct {
	Success       bool         `json:"success"`
	Identity      string       `json:"identity"`
	WindowCount   int          `json:"windowCount"`
	WindowResetAt time.Time    `json:"windowResetAt"`
	DailyCount    int          `json:"dailyCount"`
	DailyResetAt  time.Time    `json:"dailyResetAt"`
	Limits        []quotaUsage `json:"limits"`
}

// getQuota reports the caller's counters without charging them.
func (s *Server) getQuota(c echo.Context) error {
	identity, err := helpers.GetIdentityFromContext(c)
	if err != nil {
		return err
	}
	counter, err := s.quotaSvc.Peek(c.Request().Context(), identity)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(s.quotaLimits))
	for name := range s.quotaLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	usage := make([]quotaUsage, 0, len(names))
	for _, name := range names {
		l := s.quotaLimits[name]
		w, d := counter.Remaining(l)
		usage = append(usage, quotaUsage{Name: name, WindowMax: l.WindowMax, WindowRemaining: w, DailyMax: l.DailyMax, DailyRemaining: d})
	}

	return c.JSON(http.StatusOK, quotaResponse{
		Success:       true,
		Identity:      identity,
		WindowCount:   counter.WindowCount,
		WindowResetAt: counter.WindowResetAt,
		DailyCount:    counter.DailyCount,
		DailyResetAt:  counter.DailyResetAt,
		Limits:        usage,
	})
}
