// Package observability provides the Prometheus metrics of contractwatch.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry      *prometheus.Registry
	Scan          *metrics.ScanMetrics
	Notification  *metrics.NotificationMetrics
	ContractStore *metrics.ContractStoreMetrics
	HTTP          *metrics.HTTPMetrics
	Errors        *metrics.ErrorMetrics
}

// NewMetrics creates a private registry with the Go and process collectors
// and every application collector.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newMetrics(registry)
}

func newMetrics(registry *prometheus.Registry) (*Metrics, error) {
	scan, err := metrics.NewScanMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan metrics: %w", err)
	}

	notification, err := metrics.NewNotificationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}

	contractStore, err := metrics.NewContractStoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract store metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	errorMetrics, err := metrics.NewErrorMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create error metrics: %w", err)
	}

	return &Metrics{
		registry:      registry,
		Scan:          scan,
		Notification:  notification,
		ContractStore: contractStore,
		HTTP:          httpMetrics,
		Errors:        errorMetrics,
	}, nil
}

// Registry returns the registry backing the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// ObserveErrors counts every enhanced error built from now on
func (m *Metrics) ObserveErrors() {
	errors.AddErrorHook(func(ee *errors.EnhancedError) {
		m.Errors.RecordError(ee.GetComponent(), ee.GetCategory())
	})
}
