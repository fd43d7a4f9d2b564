package httpserver

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Code       string `json:"code"`
	Scope      string `json:"scope,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// StatusFor maps an error code to the HTTP status callers see. Upstream credential
// problems are the server's fault, not the caller's, so they surface as 502.
func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodeInvalidQuery:
		return http.StatusBadRequest
	case apperr.CodeQuotaExceeded, apperr.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperr.CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case apperr.CodeInvalidResponse, apperr.CodeUnauthorized:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func codeForStatus(status int) apperr.Code {
	switch status {
	case http.StatusUnauthorized:
		return apperr.CodeUnauthenticated
	case http.StatusTooManyRequests:
		return apperr.CodeRateLimited
	case http.StatusServiceUnavailable:
		return apperr.CodeUpstreamUnavailable
	}
	if status >= 400 && status < 500 {
		return apperr.CodeInvalidQuery
	}
	return apperr.CodeUnknown
}

// errorHandler renders apperr and echo errors in the ErrorResponse envelope.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := ErrorResponse{Success: false}
	status := http.StatusInternalServerError

	var he *echo.HTTPError
	if e, ok := apperr.As(err); ok {
		status = StatusFor(e.Code)
		resp.Code = string(e.Code)
		resp.Error = e.Error()
		resp.Scope = e.Scope
		if e.RetryAfter > 0 {
			resp.RetryAfter = int(math.Ceil(e.RetryAfter.Seconds()))
			c.Response().Header().Set("Retry-After", strconv.Itoa(resp.RetryAfter))
		}
		if e.Code == apperr.CodeUnknown || e.Code == apperr.CodeUnauthorized {
			resp.Error = "internal error"
		}
	} else if errors.As(err, &he) {
		status = he.Code
		resp.Code = string(codeForStatus(he.Code))
		resp.Error = http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok && msg != "" {
			resp.Error = msg
		}
	} else {
		resp.Code = string(apperr.CodeUnknown)
		resp.Error = "internal error"
	}

	if status >= 500 && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"status": status,
			"code":   resp.Code,
		}).WithError(err).Error("Request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, resp)
	}
	if err != nil && s.logger != nil {
		s.logger.WithError(err).Error("Failed to write error response")
	}
}
