package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ContractStoreMetrics tracks requests to the HR backend
type ContractStoreMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewContractStoreMetrics creates and registers the contract store collectors
func NewContractStoreMetrics(registry *prometheus.Registry) (*ContractStoreMetrics, error) {
	m := &ContractStoreMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "contractstore_requests_total",
			Help:      "Contract store HTTP attempts by endpoint and status",
		}, []string{"endpoint", "status"}), // status: HTTP code or "error"

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "contractstore_request_duration_seconds",
			Help:      "Contract store HTTP round-trip time by endpoint",
			Buckets:   requestBuckets,
		}, []string{"endpoint"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register contract store metrics: %w", err)
	}
	return m, nil
}

// RecordRequest counts one attempt and observes its latency
func (m *ContractStoreMetrics) RecordRequest(endpoint, status string, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Describe implements the prometheus.Collector interface.
func (m *ContractStoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RequestsTotal.Describe(ch)
	m.RequestDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ContractStoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RequestsTotal.Collect(ch)
	m.RequestDuration.Collect(ch)
}
