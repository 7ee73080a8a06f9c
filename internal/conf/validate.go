// validate.go: settings validation
package conf

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// State store drivers
const (
	StateDriverSQLite = "sqlite"
	StateDriverMySQL  = "mysql"
	StateDriverMemory = "memory"
)

// ValidationError collects every configuration problem found
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	if settings == nil {
		return ValidationError{Errors: []string{"settings are nil"}}
	}

	ve := ValidationError{}
	ve.Errors = append(ve.Errors, validateLogging(settings)...)
	ve.Errors = append(ve.Errors, validateContractStore(&settings.ContractStore)...)
	ve.Errors = append(ve.Errors, validateExpiry(&settings.Expiry)...)
	ve.Errors = append(ve.Errors, validateNotifications(&settings.Notifications)...)
	ve.Errors = append(ve.Errors, validateState(&settings.State)...)

	if settings.WebServer.Enabled && settings.WebServer.Listen == "" {
		ve.Errors = append(ve.Errors, "webserver.listen is required when the web server is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLogging(settings *Settings) []string {
	var problems []string
	switch strings.ToLower(settings.Logging.Backend) {
	case "", "slog", "zap":
	default:
		problems = append(problems, fmt.Sprintf("logging.backend must be slog or zap, got %q", settings.Logging.Backend))
	}
	return problems
}

func validateContractStore(cs *ContractStoreSettings) []string {
	var problems []string

	u, err := url.Parse(cs.BaseURL)
	switch {
	case cs.BaseURL == "":
		problems = append(problems, "contractstore.base_url is required")
	case err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
		problems = append(problems, fmt.Sprintf("contractstore.base_url %q is not a valid http(s) URL", cs.BaseURL))
	}

	if !strings.HasPrefix(cs.ContractsPath, "/") {
		problems = append(problems, "contractstore.contracts_path must start with /")
	}
	if !strings.HasPrefix(cs.WorkersPath, "/") {
		problems = append(problems, "contractstore.workers_path must start with /")
	}
	if cs.Timeout <= 0 {
		problems = append(problems, "contractstore.timeout must be positive")
	}
	if cs.CacheTTL < 0 {
		problems = append(problems, "contractstore.cache_ttl cannot be negative")
	}
	if cs.MaxRetries < 1 {
		problems = append(problems, "contractstore.max_retries must be at least 1")
	}
	return problems
}

func validateExpiry(ex *ExpirySettings) []string {
	var problems []string
	if ex.WindowDays <= 0 {
		problems = append(problems, "expiry.window_days must be positive")
	}
	if ex.Schedule != "" {
		if _, err := cron.ParseStandard(ex.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("expiry.schedule %q is not a valid cron expression: %v", ex.Schedule, err))
		}
	}
	if ex.Timezone != "" && ex.Timezone != "Local" {
		if _, err := time.LoadLocation(ex.Timezone); err != nil {
			problems = append(problems, fmt.Sprintf("expiry.timezone %q is unknown", ex.Timezone))
		}
	}
	return problems
}

func validateNotifications(n *NotificationSettings) []string {
	var problems []string
	if n.MaxItems <= 0 {
		problems = append(problems, "notifications.max_items must be positive")
	}
	if n.ToastDuration <= 0 {
		problems = append(problems, "notifications.toast_duration must be positive")
	}

	if n.Push.Enabled {
		if len(n.Push.URLs) == 0 {
			problems = append(problems, "notifications.push.urls is required when push is enabled")
		}
		if n.Push.RatePerMinute <= 0 {
			problems = append(problems, "notifications.push.rate_per_minute must be positive")
		}
		if n.Push.Burst <= 0 {
			problems = append(problems, "notifications.push.burst must be positive")
		}
		if n.Push.QueueSize <= 0 {
			problems = append(problems, "notifications.push.queue_size must be positive")
		}
	}

	if n.MQTT.Enabled {
		if n.MQTT.Broker == "" {
			problems = append(problems, "notifications.mqtt.broker is required when mqtt is enabled")
		}
		if n.MQTT.Topic == "" {
			problems = append(problems, "notifications.mqtt.topic is required when mqtt is enabled")
		}
	}
	return problems
}

func validateState(s *StateSettings) []string {
	switch s.Driver {
	case StateDriverSQLite:
		if s.Path == "" {
			return []string{"state.path is required for the sqlite driver"}
		}
	case StateDriverMySQL:
		if s.DSN == "" {
			return []string{"state.dsn is required for the mysql driver"}
		}
	case StateDriverMemory:
	default:
		return []string{fmt.Sprintf("state.driver must be sqlite, mysql or memory, got %q", s.Driver)}
	}
	return nil
}
