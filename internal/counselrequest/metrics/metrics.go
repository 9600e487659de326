package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks counsel request volume and status movement.
type Metrics struct {
	RequestsCreated prometheus.Counter
	Transitions     *prometheus.CounterVec
	Recommendations prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "yeirin_counsel_requests_created_total",
			Help: "Counsel requests submitted by guardians",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_counsel_request_transitions_total",
			Help: "Counsel request status transitions by target status",
		}, []string{"status"}),
		Recommendations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yeirin_counsel_request_recommendations",
			Help:    "Number of candidates stored per recommendation round",
			Buckets: []float64{0, 1, 3, 5, 10, 20},
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.RequestsCreated.Inc()
}

func (m *Metrics) IncrementTransition(status string) {
	m.Transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRecommendations(n int) {
	m.Recommendations.Observe(float64(n))
}
