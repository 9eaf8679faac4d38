package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMetrics(reg)

	m.PublishSucceeded("PUBLISHED")
	m.PublishSucceeded("PUBLISHED")
	m.PublishSucceeded("PROCESSING_POST")
	m.PublishFailed("quota_exceeded")
	m.TokenRefreshed()
	m.AttemptDuration(3 * time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.published.WithLabelValues("PUBLISHED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("PROCESSING_POST")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFailed.WithLabelValues("quota_exceeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokenRefreshed))
	assert.Equal(t, 4, testutil.CollectAndCount(reg))
}

func TestPromMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPromMetrics(reg)
	assert.Panics(t, func() { NewPromMetrics(reg) })
}
