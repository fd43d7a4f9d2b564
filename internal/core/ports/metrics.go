package ports

import "time"

// MetricsRecorder receives orchestration events. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	// ResolveOutcome counts one resolve by kind and outcome
	// (fresh_hit, miss, stale_quota, stale_error, error).
	ResolveOutcome(kind, outcome string, elapsed time.Duration)
	UpstreamCall(provider, result string)
	QuotaRejected(scope string)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) ResolveOutcome(string, string, time.Duration) {}
func (NopMetrics) UpstreamCall(string, string)                  {}
func (NopMetrics) QuotaRejected(string)                         {}
