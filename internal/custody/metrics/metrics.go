package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for the custody engine.
// All methods are safe on a nil receiver.
type Metrics struct {
	ShipmentsRegistered prometheus.Counter
	ScansTotal          *prometheus.CounterVec
	ViolationsTotal     *prometheus.CounterVec
	ScanDuration        prometheus.Histogram
	ReportDuration      prometheus.Histogram
	IntegrityFailures   prometheus.Counter
	EventsPublished     prometheus.Counter
	PublishFailures     prometheus.Counter
}

// New registers custody metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers custody metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ShipmentsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "veriseal_shipments_registered_total",
			Help: "Total number of shipments registered",
		}),
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veriseal_checkpoint_scans_total",
			Help: "Checkpoint scans by outcome (proceed, delivered, returned, rejected)",
		}, []string{"outcome"}),
		ViolationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veriseal_tamper_violations_total",
			Help: "Tamper violations detected by kind",
		}, []string{"kind"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "veriseal_scan_duration_seconds",
			Help:    "Duration of checkpoint scans including the ledger commit",
			Buckets: durationBuckets,
		}),
		ReportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "veriseal_report_build_duration_seconds",
			Help:    "Duration of transit report builds including chain verification",
			Buckets: durationBuckets,
		}),
		IntegrityFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "veriseal_ledger_integrity_failures_total",
			Help: "Ledger verifications that found a broken hash chain",
		}),
		EventsPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "veriseal_custody_events_published_total",
			Help: "Custody events published to the event stream",
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "veriseal_custody_event_publish_failures_total",
			Help: "Custody events that could not be published to the event stream",
		}),
	}
}

func (m *Metrics) IncrementShipmentsRegistered() {
	if m == nil {
		return
	}
	m.ShipmentsRegistered.Inc()
}

// IncrementScan records a scan outcome.
func (m *Metrics) IncrementScan(outcome string) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementViolation(kind string) {
	if m == nil {
		return
	}
	m.ViolationsTotal.WithLabelValues(kind).Inc()
}

// ObserveScan records the duration of a scan.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveScan(start time.Time) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(time.Since(start).Seconds())
}

// ObserveReport records the duration of a report build.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveReport(start time.Time) {
	if m == nil {
		return
	}
	m.ReportDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementIntegrityFailure() {
	if m == nil {
		return
	}
	m.IntegrityFailures.Inc()
}

func (m *Metrics) AddEventsPublished(n int) {
	if m == nil {
		return
	}
	m.EventsPublished.Add(float64(n))
}

func (m *Metrics) AddPublishFailures(n int) {
	if m == nil {
		return
	}
	m.PublishFailures.Add(float64(n))
}
