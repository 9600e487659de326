package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the matching module.
type Metrics struct {
	Requests        *prometheus.CounterVec
	UpstreamLatency prometheus.Histogram
	HighScoreShare  prometheus.Histogram
}

// New registers the matching metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_matching_requests_total",
			Help: "Recommendation requests by outcome (ok, invalid, upstream_error)",
		}, []string{"outcome"}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yeirin_matching_upstream_duration_seconds",
			Help:    "Latency of calls to the AI recommendation service",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		HighScoreShare: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yeirin_matching_high_score_ratio",
			Help:    "Fraction of returned candidates at or above the high-score threshold",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	m.Requests.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records the duration of an upstream call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUpstream(start time.Time) {
	m.UpstreamLatency.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveHighScoreShare(high, total int) {
	if total == 0 {
		return
	}
	m.HighScoreShare.Observe(float64(high) / float64(total))
}
