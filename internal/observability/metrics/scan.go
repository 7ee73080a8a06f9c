package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics tracks the daily expiration scan
type ScanMetrics struct {
	RunsTotal         *prometheus.CounterVec
	ExpiringContracts prometheus.Gauge
	LastRunTimestamp  prometheus.Gauge
	RunDuration       prometheus.Histogram
}

// NewScanMetrics creates and registers the scan collectors
func NewScanMetrics(registry *prometheus.Registry) (*ScanMetrics, error) {
	m := &ScanMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register scan metrics: %w", err)
	}
	return m, nil
}

func (m *ScanMetrics) initMetrics() {
	m.RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "scan_runs_total",
		Help:      "Expiration scan runs by result",
	}, []string{"result"}) // notified, nothing_due, skipped, fetch_error, error, staged

	m.ExpiringContracts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "expiring_contracts",
		Help:      "Contracts found expiring within the window by the last completed scan",
	})

	m.LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "scan_last_run_timestamp_seconds",
		Help:      "Unix time of the last scan that fetched the contract store",
	})

	m.RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of scans that fetched the contract store",
		Buckets:   requestBuckets,
	})
}

// RecordRun counts one scan with its result
func (m *ScanMetrics) RecordRun(result string) {
	m.RunsTotal.WithLabelValues(result).Inc()
}

// RecordCompleted records a scan that reached the contract store
func (m *ScanMetrics) RecordCompleted(expiring int, at time.Time, elapsed time.Duration) {
	m.ExpiringContracts.Set(float64(expiring))
	m.LastRunTimestamp.Set(float64(at.Unix()))
	m.RunDuration.Observe(elapsed.Seconds())
}

// Describe implements the prometheus.Collector interface.
func (m *ScanMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RunsTotal.Describe(ch)
	m.ExpiringContracts.Describe(ch)
	m.LastRunTimestamp.Describe(ch)
	m.RunDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ScanMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RunsTotal.Collect(ch)
	m.ExpiringContracts.Collect(ch)
	m.LastRunTimestamp.Collect(ch)
	m.RunDuration.Collect(ch)
}
