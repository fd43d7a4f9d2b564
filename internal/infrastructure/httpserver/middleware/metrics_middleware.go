package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/metrics"
)

// MetricsMiddleware holds the Prometheus metrics
type MetricsMiddleware struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetricsMiddleware creates a new metrics middleware instance. A nil recorder disables it.
func NewMetricsMiddleware(recorder *metrics.Recorder) *MetricsMiddleware {
	if recorder == nil {
		return &MetricsMiddleware{}
	}
	return &MetricsMiddleware{
		requestsTotal:   recorder.RequestsTotal,
		requestDuration: recorder.RequestDuration,
	}
}

// CollectHTTPMetrics creates middleware that collects HTTP request metrics
func (m *MetricsMiddleware) CollectHTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// commit the error response so the recorded status is the real one
				c.Error(err)
			}
			if m.requestsTotal == nil {
				return nil
			}

			duration := time.Since(start).Seconds()
			method := c.Request().Method
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			status := strconv.Itoa(c.Response().Status)

			m.requestsTotal.WithLabelValues(method, path, status).Inc()
			m.requestDuration.WithLabelValues(method, path).Observe(duration)

			return nil
		}
	}
}
