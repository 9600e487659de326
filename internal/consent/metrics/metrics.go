package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts consent decisions by purpose.
type Metrics struct {
	Granted *prometheus.CounterVec
	Revoked *prometheus.CounterVec
	Denied  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Granted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_consents_granted_total",
			Help: "Consent grants and renewals by purpose",
		}, []string{"purpose"}),
		Revoked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_consents_revoked_total",
			Help: "Consent revocations by purpose",
		}, []string{"purpose"}),
		Denied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_consent_checks_denied_total",
			Help: "Operations refused for missing consent, by purpose",
		}, []string{"purpose"}),
	}
}

func (m *Metrics) IncrementGranted(purpose string) {
	m.Granted.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncrementRevoked(purpose string) {
	m.Revoked.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncrementDenied(purpose string) {
	m.Denied.WithLabelValues(purpose).Inc()
}
