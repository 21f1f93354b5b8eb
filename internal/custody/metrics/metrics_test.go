package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementScan("proceed")
	m.IncrementScan("proceed")
	m.IncrementViolation("SHOCK")
	m.AddPublishFailures(3)
	m.ObserveScan(time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("proceed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ViolationsTotal.WithLabelValues("SHOCK")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PublishFailures))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementShipmentsRegistered()
		m.IncrementScan("returned")
		m.ObserveReport(time.Now())
		m.IncrementIntegrityFailure()
		m.AddEventsPublished(1)
	})
}
