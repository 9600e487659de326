package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Sent            *prometheus.CounterVec
	DeliveryUpdates *prometheus.CounterVec
	SendLatency     prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Sent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_sms_sent_total",
			Help: "SMS send attempts by outcome",
		}, []string{"outcome"}),
		DeliveryUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yeirin_sms_delivery_updates_total",
			Help: "Gateway delivery callbacks applied, by status",
		}, []string{"status"}),
		SendLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yeirin_sms_send_duration_seconds",
			Help:    "Time spent handing a message to the gateway",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementSent(outcome string) {
	m.Sent.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementDeliveryUpdate(status string) {
	m.DeliveryUpdates.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveSendLatency(seconds float64) {
	m.SendLatency.Observe(seconds)
}
