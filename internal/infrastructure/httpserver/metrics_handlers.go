package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.Info("Prometheus metrics initialized and registered")
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":    "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":  "Histogram for HTTP request duration by method, endpoint",
			"newsnexus_resolve":      "Counter and histogram of resolves by kind, outcome",
			"newsnexus_upstream":     "Counter of provider calls by provider, result",
			"newsnexus_quota_reject": "Counter of quota rejections by scope",
			"metrics_endpoint":       "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

// metricsEndpoint wraps the metrics handler with logging
func (s *Server) metricsEndpoint(c echo.Context) error {
	if s.logger != nil {
		s.logger.Debug("Serving Prometheus metrics")
	}
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(c.Response(), c.Request())
	return nil
}
