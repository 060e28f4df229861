package qa

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for the requests counter.
const (
	outcomeOK             = "ok"
	outcomeValidation     = "validation_error"
	outcomeRateLimited    = "rate_limited"
	outcomeRetryExhausted = "retry_exhausted"
	outcomeError          = "error"
)

// Metrics collects pipeline-level Prometheus metrics. All methods tolerate
// a nil receiver so the pipeline runs unchanged without a registry.
type Metrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
	retries  prometheus.Counter
}

// NewMetrics registers pipeline metrics on the given registerer.
// A nil registerer uses the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctxqa",
			Name:      "requests_total",
			Help:      "Pipeline requests by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ctxqa",
			Name:      "request_duration_seconds",
			Help:      "End-to-end pipeline latency.",
			// LLM calls dominate latency; buckets span 100ms to ~2min.
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 11),
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ctxqa",
			Name:      "llm_retries_total",
			Help:      "Backoff retries performed against the LLM provider.",
		}),
	}
}

func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) recordRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}
