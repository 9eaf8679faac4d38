package metrics

import (
	"time"

	"crosspost/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
)

type PromMetrics struct {
	published      *prometheus.CounterVec
	publishFailed  *prometheus.CounterVec
	tokenRefreshed prometheus.Counter
	attemptLatency prometheus.Histogram
}

var _ repository.IPublishMetrics = (*PromMetrics)(nil)

func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiktok_publish_succeeded_total",
			Help: "Number of publish attempts accepted by the platform",
		}, []string{"status"}),
		publishFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiktok_publish_failed_total",
			Help: "Number of failed publish attempts",
		}, []string{"kind"}),
		tokenRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tiktok_token_refreshed_total",
			Help: "Number of access token refreshes",
		}),
		attemptLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tiktok_publish_attempt_seconds",
			Help:    "Duration of publish attempts including polling",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
	reg.MustRegister(m.published, m.publishFailed, m.tokenRefreshed, m.attemptLatency)
	return m
}

func (m *PromMetrics) PublishSucceeded(status string) {
	m.published.WithLabelValues(status).Inc()
}

func (m *PromMetrics) PublishFailed(kind string) {
	m.publishFailed.WithLabelValues(kind).Inc()
}

func (m *PromMetrics) TokenRefreshed() {
	m.tokenRefreshed.Inc()
}

func (m *PromMetrics) AttemptDuration(d time.Duration) {
	m.attemptLatency.Observe(d.Seconds())
}
