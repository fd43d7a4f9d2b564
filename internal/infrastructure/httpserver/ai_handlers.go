package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/chat"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/summary"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/httpserver/helpers"
)

type summaryResponse struct {
	Success bool `json:"success"`
	summary.Result
	ports.Freshness
}

type chatRequest struct {
	Message string         `json:"message"`
	History []chat.Message `json:"history"`
}

type chatResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) summarizeArticle(c echo.Context) error {
	identity, err := helpers.GetIdentityFromContext(c)
	if err != nil {
		return err
	}
	var req summary.Request
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidQuery("invalid request body")
	}
	view, err := s.summarySvc.Summarize(c.Request().Context(), identity, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summaryResponse{Success: true, Result: view.Result, Freshness: view.Freshness})
}

func (s *Server) chat(c echo.Context) error {
	identity, err := helpers.GetIdentityFromContext(c)
	if err != nil {
		return err
	}
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidQuery("invalid request body")
	}
	reply, err := s.chatSvc.Reply(c.Request().Context(), identity, req.Message, req.History)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chatResponse{Success: true, Message: reply.Message})
}
