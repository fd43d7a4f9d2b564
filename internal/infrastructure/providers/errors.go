// Package providers holds the pieces shared by the upstream adapters: error tables,
// the instrumented HTTP caller and structured-output parsing.
package providers

import (
	"net/http"
	"time"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
)

// ErrorTable maps one provider's failure vocabulary onto the apperr taxonomy.
// Provider error codes take precedence over HTTP status.
type ErrorTable struct {
	Provider string
	ByCode   map[string]apperr.Code
	ByStatus map[int]apperr.Code
}

// Classify builds the tagged error for a failed upstream response.
func (t ErrorTable) Classify(status int, code, message string, retryAfter time.Duration) *apperr.Error {
	c, ok := t.ByCode[code]
	if !ok || code == "" {
		c, ok = t.ByStatus[status]
	}
	if !ok {
		c = classifyStatus(status)
	}
	if message == "" {
		message = http.StatusText(status)
		if code != "" {
			message = code
		}
	}
	e := &apperr.Error{Code: c, Provider: t.Provider, Message: message}
	if c == apperr.CodeRateLimited {
		e.RetryAfter = retryAfter
	}
	return e
}

func classifyStatus(status int) apperr.Code {
	switch {
	case status == http.StatusTooManyRequests:
		return apperr.CodeRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.CodeUnauthorized
	case status == http.StatusRequestTimeout || status >= 500:
		return apperr.CodeUpstreamUnavailable
	case status >= 400:
		return apperr.CodeInvalidQuery
	default:
		return apperr.CodeUnknown
	}
}
