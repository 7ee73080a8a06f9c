// env.go: environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "CONTRACTWATCH"

// envBinding holds metadata for an environment variable binding
type envBinding struct {
	ConfigKey string             // viper config key
	EnvVar    string             // environment variable name
	Validate  func(string) error // optional validation function
}

// getEnvBindings returns the explicitly validated environment bindings.
// Every other key is still reachable through AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "CONTRACTWATCH_DEBUG", validateEnvBool},
		{"logging.level", "CONTRACTWATCH_LOGGING_LEVEL", validateEnvLogLevel},

		{"contractstore.base_url", "CONTRACTWATCH_CONTRACTSTORE_BASE_URL", validateEnvURL},
		{"contractstore.api_token", "CONTRACTWATCH_CONTRACTSTORE_API_TOKEN", nil},
		{"contractstore.timeout", "CONTRACTWATCH_CONTRACTSTORE_TIMEOUT", validateEnvDuration},

		{"expiry.window_days", "CONTRACTWATCH_EXPIRY_WINDOW_DAYS", validateEnvPositiveInt},
		{"expiry.schedule", "CONTRACTWATCH_EXPIRY_SCHEDULE", nil},

		{"notifications.mqtt.password", "CONTRACTWATCH_NOTIFICATIONS_MQTT_PASSWORD", nil},

		{"state.driver", "CONTRACTWATCH_STATE_DRIVER", validateEnvStateDriver},
		{"state.path", "CONTRACTWATCH_STATE_PATH", nil},
		{"state.dsn", "CONTRACTWATCH_STATE_DSN", nil},

		{"webserver.listen", "CONTRACTWATCH_WEBSERVER_LISTEN", nil},
	}
}

// configureEnvironmentVariables sets up environment variable support for viper
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return bindEnvVars(v)
}

// bindEnvVars binds and validates the explicit environment variables
func bindEnvVars(v *viper.Viper) error {
	var problems []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvStateDriver(value string) error {
	switch value {
	case StateDriverSQLite, StateDriverMySQL, StateDriverMemory:
		return nil
	default:
		return fmt.Errorf("must be sqlite, mysql or memory")
	}
}
