package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains the feed, toast and push delivery collectors
type NotificationMetrics struct {
	AddedTotal      *prometheus.CounterVec   // feed notifications by type
	FeedUnread      prometheus.Gauge         // unread feed notifications
	ToastsShown     *prometheus.CounterVec   // toasts by type
	ToastsDismissed *prometheus.CounterVec   // toasts by dismiss reason
	PushDeliveries  *prometheus.CounterVec   // push attempts by provider and status
	PushDuration    *prometheus.HistogramVec // push latency by provider
	MQTTConnected   prometheus.Gauge         // 1 when the broker connection is up
}

// NewNotificationMetrics creates and registers the notification collectors
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.AddedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "notifications_added_total",
		Help:      "Notifications added to the feed by type",
	}, []string{"type"})

	m.FeedUnread = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "feed_unread",
		Help:      "Unread notifications in the feed",
	})

	m.ToastsShown = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "toasts_shown_total",
		Help:      "Toasts shown by type",
	}, []string{"type"})

	m.ToastsDismissed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "toasts_dismissed_total",
		Help:      "Toasts removed by reason",
	}, []string{"reason"}) // manual, expired, closed

	m.PushDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "push_deliveries_total",
		Help:      "Push delivery attempts by provider and status",
	}, []string{"provider", "status"}) // success, error, dropped, deduplicated

	m.PushDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "push_delivery_duration_seconds",
		Help:      "Push delivery latency by provider",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"provider"})

	m.MQTTConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "mqtt_connection_status",
		Help:      "Current MQTT connection status (1 for connected, 0 for disconnected)",
	})
}

// RecordAdded counts one feed notification
func (m *NotificationMetrics) RecordAdded(notificationType string) {
	m.AddedTotal.WithLabelValues(notificationType).Inc()
}

// SetUnread updates the unread gauge
func (m *NotificationMetrics) SetUnread(n int) {
	m.FeedUnread.Set(float64(n))
}

// RecordToastShown counts one toast
func (m *NotificationMetrics) RecordToastShown(toastType string) {
	m.ToastsShown.WithLabelValues(toastType).Inc()
}

// RecordToastDismissed counts one removed toast
func (m *NotificationMetrics) RecordToastDismissed(reason string) {
	m.ToastsDismissed.WithLabelValues(reason).Inc()
}

// RecordDelivery counts one push attempt. Zero durations are not observed,
// they belong to queue-level outcomes.
func (m *NotificationMetrics) RecordDelivery(provider, status string, elapsed time.Duration) {
	m.PushDeliveries.WithLabelValues(provider, status).Inc()
	if elapsed > 0 {
		m.PushDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// SetMQTTConnected updates the broker connection gauge
func (m *NotificationMetrics) SetMQTTConnected(connected bool) {
	if connected {
		m.MQTTConnected.Set(1)
		return
	}
	m.MQTTConnected.Set(0)
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.AddedTotal.Describe(ch)
	m.FeedUnread.Describe(ch)
	m.ToastsShown.Describe(ch)
	m.ToastsDismissed.Describe(ch)
	m.PushDeliveries.Describe(ch)
	m.PushDuration.Describe(ch)
	m.MQTTConnected.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.AddedTotal.Collect(ch)
	m.FeedUnread.Collect(ch)
	m.ToastsShown.Collect(ch)
	m.ToastsDismissed.Collect(ch)
	m.PushDeliveries.Collect(ch)
	m.PushDuration.Collect(ch)
	m.MQTTConnected.Collect(ch)
}
