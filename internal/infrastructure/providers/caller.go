package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/resilience"
)

const maxBodyBytes = 8 << 20

var tracer = otel.Tracer("github.com/Hafiz-Al-Shams/news-nexus/providers")

// Response is a fully read upstream reply with a 2xx status.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// ErrorDecoder extracts the provider's error code and message from a failed response body.
type ErrorDecoder func(body []byte) (code, message string)

// Caller performs one HTTP exchange per call: no retries, optional breaker, and a
// classified error for every failure path.
type Caller struct {
	Provider string
	HTTP     *http.Client
	Table    ErrorTable
	Breaker  *resilience.Breaker
	Metrics  ports.MetricsRecorder
}

// TripsBreaker reports whether err says the upstream itself is unhealthy.
func TripsBreaker(err error) bool {
	return apperr.CodeOf(err) == apperr.CodeUpstreamUnavailable
}

func (c *Caller) Do(ctx context.Context, req *http.Request, decode ErrorDecoder) (*Response, error) {
	ctx, span := tracer.Start(ctx, "provider.call")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", c.Provider),
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.URL.Path),
	)

	var out *Response
	err := c.Breaker.Execute(func() error {
		var err error
		out, err = c.roundTrip(ctx, req, decode)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		err = apperr.UpstreamUnavailable(c.Provider, err)
	}

	result := "ok"
	if err != nil {
		result = string(apperr.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	if c.Metrics != nil {
		c.Metrics.UpstreamCall(c.Provider, result)
	}
	return out, err
}

func (c *Caller) roundTrip(ctx context.Context, req *http.Request, decode ErrorDecoder) (*Response, error) {
	resp, err := c.HTTP.Do(req.WithContext(ctx))
	if err != nil {
		return nil, apperr.UpstreamUnavailable(c.Provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.UpstreamUnavailable(c.Provider, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
	}

	var code, msg string
	if decode != nil {
		code, msg = decode(body)
	}
	if msg == "" {
		msg = bodyExcerpt(body)
	}
	return nil, c.Table.Classify(resp.StatusCode, code, msg, RetryAfter(resp.Header, time.Now()))
}

func bodyExcerpt(body []byte) string {
	const n = 200
	if len(body) > n {
		return string(body[:n])
	}
	return string(body)
}
