package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrorMetrics counts enhanced errors as they are built
type ErrorMetrics struct {
	ErrorsTotal *prometheus.CounterVec
}

// NewErrorMetrics creates and registers the error collectors
func NewErrorMetrics(registry *prometheus.Registry) (*ErrorMetrics, error) {
	m := &ErrorMetrics{
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Errors built by component and category",
		}, []string{"component", "category"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register error metrics: %w", err)
	}
	return m, nil
}

// RecordError counts one error
func (m *ErrorMetrics) RecordError(component, category string) {
	if component == "" {
		component = "unknown"
	}
	m.ErrorsTotal.WithLabelValues(component, category).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *ErrorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ErrorsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ErrorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ErrorsTotal.Collect(ch)
}
