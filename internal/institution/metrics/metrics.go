package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the institution module.
type Metrics struct {
	InstitutionsCreated prometheus.Counter
	StatusChanges       *prometheus.CounterVec
	ReviewsApplied      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InstitutionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "yeirin_institutions_created_total",
			Help: "Total number of institutions created",
		}),
		StatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_institution_status_changes_total",
			Help: "Institution status transitions by target status",
		}, []string{"status"}),
		ReviewsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "yeirin_institution_reviews_applied_total",
			Help: "Ratings folded into institution averages",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.InstitutionsCreated.Inc()
}

func (m *Metrics) IncrementStatusChange(status string) {
	m.StatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementReviewApplied() {
	m.ReviewsApplied.Inc()
}
