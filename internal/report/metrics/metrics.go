package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ReportsCreated  prometheus.Counter
	AttachmentBytes prometheus.Histogram
	UploadFailures  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReportsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "yeirin_reports_created_total",
			Help: "Counseling session reports written by institutions",
		}),
		AttachmentBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yeirin_report_attachment_bytes",
			Help:    "Size of uploaded report attachments",
			Buckets: prometheus.ExponentialBuckets(16<<10, 4, 6),
		}),
		UploadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "yeirin_report_attachment_upload_failures_total",
			Help: "Attachment uploads rejected by object storage",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.ReportsCreated.Inc()
}

func (m *Metrics) ObserveAttachment(size int64) {
	m.AttachmentBytes.Observe(float64(size))
}

func (m *Metrics) IncrementUploadFailure() {
	m.UploadFailures.Inc()
}
