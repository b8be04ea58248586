package limiter

// Metric names emitted by Limiter and Guard.
const (
	metricCalls    = "ratelimit.call"
	metricAllowed  = "ratelimit.allowed"
	metricDenied   = "ratelimit.denied"
	metricDegraded = "ratelimit.degraded"
	metricLatency  = "ratelimit.latency"
)

// MetricsRecorder receives best-effort observability events: counter bumps per
// verdict and store-call latency observations. Implementations must be cheap
// and must never block; emission sits on the verdict hot path.
type MetricsRecorder interface {
	Add(name string, value float64, tags map[string]string)
	Observe(name string, value float64, tags map[string]string)
}
