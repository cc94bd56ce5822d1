// Package metric provides prometheus instrumentation for the engine.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all engine-level metrics.
type Metrics struct {
	// Scan metrics
	ElementsScanned    prometheus.Counter
	ElementsClassified prometheus.Counter
	ElementsSkipped    prometheus.Counter
	BatchesProcessed   prometheus.Counter
	BatchRetries       prometheus.Counter
	ScanDuration       prometheus.Histogram

	// Mapping metrics
	MappingCoverage prometheus.Gauge
	UnmappedIDs     prometheus.Gauge
	UnmappedKeys    prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all engine metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ElementsScanned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitelens",
				Subsystem: "scan",
				Name:      "elements_total",
				Help:      "Total number of elements scanned",
			},
		),

		ElementsClassified: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitelens",
				Subsystem: "scan",
				Name:      "classified_total",
				Help:      "Total number of elements classified as domain entities",
			},
		),

		ElementsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitelens",
				Subsystem: "scan",
				Name:      "skipped_total",
				Help:      "Total number of elements skipped for malformed or missing properties",
			},
		),

		BatchesProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitelens",
				Subsystem: "scan",
				Name:      "batches_total",
				Help:      "Total number of property batches processed",
			},
		),

		BatchRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitelens",
				Subsystem: "scan",
				Name:      "batch_retries_total",
				Help:      "Total number of batch fetch retries",
			},
		),

		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sitelens",
				Subsystem: "scan",
				Name:      "duration_seconds",
				Help:      "Full scan duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		MappingCoverage: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sitelens",
				Subsystem: "mapping",
				Name:      "coverage_percent",
				Help:      "Share of classified elements mapped to schedule rows",
			},
		),

		UnmappedIDs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sitelens",
				Subsystem: "mapping",
				Name:      "unmapped_elements",
				Help:      "Number of classified elements without a schedule row",
			},
		),

		UnmappedKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sitelens",
				Subsystem: "mapping",
				Name:      "unmapped_keys",
				Help:      "Number of element keys absent from the schedule dataset",
			},
		),
	}
}

// Register registers all metrics with a prometheus registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.ElementsScanned,
		m.ElementsClassified,
		m.ElementsSkipped,
		m.BatchesProcessed,
		m.BatchRetries,
		m.ScanDuration,
		m.MappingCoverage,
		m.UnmappedIDs,
		m.UnmappedKeys,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordBatch records one processed batch.
func (m *Metrics) RecordBatch(scanned, classified, skipped int) {
	m.BatchesProcessed.Inc()
	m.ElementsScanned.Add(float64(scanned))
	m.ElementsClassified.Add(float64(classified))
	m.ElementsSkipped.Add(float64(skipped))
}

// RecordScanDuration records a completed scan's duration.
func (m *Metrics) RecordScanDuration(d time.Duration) {
	m.ScanDuration.Observe(d.Seconds())
}

// RecordRetry increments the batch retry counter.
func (m *Metrics) RecordRetry() {
	m.BatchRetries.Inc()
}

// RecordCoverage records mapping coverage after a join.
func (m *Metrics) RecordCoverage(percent float64, unmappedIDs, unmappedKeys int) {
	m.MappingCoverage.Set(percent)
	m.UnmappedIDs.Set(float64(unmappedIDs))
	m.UnmappedKeys.Set(float64(unmappedKeys))
}
