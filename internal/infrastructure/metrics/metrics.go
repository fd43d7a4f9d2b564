package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

const namespace = "newsnexus"

// Recorder holds every collector the service exports: the HTTP request metrics used by
// the server middleware and the orchestration counters behind ports.MetricsRecorder.
type Recorder struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	resolveTotal    *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	upstreamCalls   *prometheus.CounterVec
	quotaRejections *prometheus.CounterVec
}

var _ ports.MetricsRecorder = (*Recorder)(nil)

// New builds the collectors and registers them with reg. Pass prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "The total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "The HTTP request latencies in seconds",
			},
			[]string{"method", "endpoint"},
		),
		resolveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolve_total",
				Help:      "Resolves by payload kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "Resolve latency by payload kind",
				Buckets:   []float64{.001, .005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		upstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Provider calls by provider and result code",
			},
			[]string{"provider", "result"},
		),
		quotaRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_rejections_total",
				Help:      "Requests rejected by the per-identity quota, by window",
			},
			[]string{"scope"},
		),
	}
	reg.MustRegister(r.RequestsTotal, r.RequestDuration, r.resolveTotal, r.resolveDuration, r.upstreamCalls, r.quotaRejections)
	return r
}

func (r *Recorder) ResolveOutcome(kind, outcome string, elapsed time.Duration) {
	r.resolveTotal.WithLabelValues(kind, outcome).Inc()
	r.resolveDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (r *Recorder) UpstreamCall(provider, result string) {
	r.upstreamCalls.WithLabelValues(provider, result).Inc()
}

func (r *Recorder) QuotaRejected(scope string) {
	r.quotaRejections.WithLabelValues(scope).Inc()
}
