package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/bulletin"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/httpserver/helpers"
)

type bulletinResponse struct {
	Success bool `json:"success"`
	*bulletin.Bulletin
	ports.Freshness
}

type expandRequest struct {
	Bullets []string `json:"bullets"`
}

type cardsResponse struct {
	Success     bool            `json:"success"`
	Cards       []bulletin.Card `json:"cards"`
	Fingerprint string          `json:"fingerprint"`
	ports.Freshness
}

func (s *Server) getLatestBulletin(c echo.Context) error {
	identity, err := helpers.GetIdentityFromContext(c)
	if err != nil {
		return err
	}
	view, err := s.bulletinSvc.Latest(c.Request().Context(), identity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bulletinResponse{Success: true, Bulletin: view.Bulletin, Freshness: view.Freshness})
}

func (s *Server) expandBulletin(c echo.Context) error {
	identity, err := helpers.GetIdentityFromContext(c)
	if err != nil {
		return err
	}
	var req expandRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidQuery("invalid request body")
	}
	view, err := s.bulletinSvc.Expand(c.Request().Context(), identity, req.Bullets)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cardsResponse{
		Success:     true,
		Cards:       view.Cards,
		Fingerprint: view.Fingerprint,
		Freshness:   view.Freshness,
	})
}
