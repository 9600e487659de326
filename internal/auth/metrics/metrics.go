package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auth module.
type Metrics struct {
	UsersRegistered *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	LoginDuration   prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_users_registered_total",
			Help: "Total number of registered users by role",
		}, []string{"role"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_logins_total",
			Help: "Login attempts by outcome (succeeded, failed)",
		}, []string{"outcome"}),
		LoginDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yeirin_login_duration_seconds",
			Help:    "Duration of login including password verification",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementRegistered(role string) {
	m.UsersRegistered.WithLabelValues(role).Inc()
}

func (m *Metrics) IncrementLogin(outcome string) {
	m.Logins.WithLabelValues(outcome).Inc()
}

// ObserveLogin records the duration of a login.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLogin(start time.Time) {
	m.LoginDuration.Observe(time.Since(start).Seconds())
}
