// defaults.go: default values for every configuration key
package conf

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultContractsPath = "/api/contratos"
	DefaultWorkersPath   = "/api/trabajadores"
	DefaultFetchTimeout  = 10 * time.Second
	DefaultWindowDays    = 30
	DefaultSchedule      = "0 8 * * *"
	DefaultMaxItems      = 200
	DefaultToastDuration = 5000 * time.Millisecond
)

// setDefaultConfig sets default values for every configuration key
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.backend", "slog")
	v.SetDefault("logging.json", false)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.module_levels", map[string]string{})

	v.SetDefault("contractstore.base_url", "http://localhost:8000")
	v.SetDefault("contractstore.contracts_path", DefaultContractsPath)
	v.SetDefault("contractstore.workers_path", DefaultWorkersPath)
	v.SetDefault("contractstore.api_token", "")
	v.SetDefault("contractstore.api_token_file", "")
	v.SetDefault("contractstore.timeout", DefaultFetchTimeout)
	v.SetDefault("contractstore.cache_ttl", 15*time.Minute)
	v.SetDefault("contractstore.user_agent", "contractwatch")
	v.SetDefault("contractstore.max_retries", 3)

	v.SetDefault("expiry.window_days", DefaultWindowDays)
	v.SetDefault("expiry.schedule", DefaultSchedule)
	v.SetDefault("expiry.run_on_startup", true)
	v.SetDefault("expiry.timezone", "Local")

	v.SetDefault("notifications.max_items", DefaultMaxItems)
	v.SetDefault("notifications.toast_duration", DefaultToastDuration)

	v.SetDefault("notifications.push.enabled", false)
	v.SetDefault("notifications.push.urls", []string{})
	v.SetDefault("notifications.push.types", []string{"warning", "error"})
	v.SetDefault("notifications.push.rate_per_minute", 10)
	v.SetDefault("notifications.push.burst", 3)
	v.SetDefault("notifications.push.dedup_ttl", time.Hour)
	v.SetDefault("notifications.push.timeout", 30*time.Second)
	v.SetDefault("notifications.push.queue_size", 100)

	v.SetDefault("notifications.mqtt.enabled", false)
	v.SetDefault("notifications.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("notifications.mqtt.topic", "contractwatch/notifications")
	v.SetDefault("notifications.mqtt.client_id", "contractwatch")
	v.SetDefault("notifications.mqtt.username", "")
	v.SetDefault("notifications.mqtt.password", "")
	v.SetDefault("notifications.mqtt.password_file", "")
	v.SetDefault("notifications.mqtt.retain", false)

	v.SetDefault("state.driver", "sqlite")
	v.SetDefault("state.path", "contractwatch.db")
	v.SetDefault("state.dsn", "")
	v.SetDefault("state.dsn_file", "")

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.metrics", true)
}
