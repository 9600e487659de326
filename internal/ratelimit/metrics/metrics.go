package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Checks      *prometheus.CounterVec
	StoreErrors prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_ratelimit_checks_total",
			Help: "Rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "yeirin_ratelimit_store_errors_total",
			Help: "Limiter store failures; requests are let through when this happens",
		}),
	}
}

func (m *Metrics) IncrementCheck(class, outcome string) {
	m.Checks.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncrementStoreError() {
	m.StoreErrors.Inc()
}
