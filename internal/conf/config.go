// config.go: settings tree and loading for contractwatch
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// ContractStoreSettings describes the REST backend holding contracts and workers
type ContractStoreSettings struct {
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`             // e.g. https://hr.example.com
	ContractsPath string        `yaml:"contracts_path" mapstructure:"contracts_path"` // contract list endpoint
	WorkersPath   string        `yaml:"workers_path" mapstructure:"workers_path"`     // worker list endpoint
	APIToken      string        `yaml:"api_token" mapstructure:"api_token"`           // optional bearer token, ${VAR} is expanded
	APITokenFile  string        `yaml:"api_token_file" mapstructure:"api_token_file"` // read the token from a file instead
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`               // fetch timeout for one snapshot
	CacheTTL      time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`           // worker directory entry lifetime
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// ExpirySettings controls the expiration scan
type ExpirySettings struct {
	WindowDays   int    `yaml:"window_days" mapstructure:"window_days"`       // contracts ending within this many days are expiring
	Schedule     string `yaml:"schedule" mapstructure:"schedule"`             // cron expression of the daily check
	RunOnStartup bool   `yaml:"run_on_startup" mapstructure:"run_on_startup"` // run the gated check when serve starts
	Timezone     string `yaml:"timezone" mapstructure:"timezone"`             // calendar used for "today"
}

// PushSettings forwards new feed notifications to external services
type PushSettings struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	URLs          []string      `yaml:"urls" mapstructure:"urls"`   // shoutrrr service URLs
	Types         []string      `yaml:"types" mapstructure:"types"` // notification types to forward, empty means warning and error
	RatePerMinute int           `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	Burst         int           `yaml:"burst" mapstructure:"burst"`
	DedupTTL      time.Duration `yaml:"dedup_ttl" mapstructure:"dedup_ttl"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	QueueSize     int           `yaml:"queue_size" mapstructure:"queue_size"`
}

// MQTTSettings publishes new feed notifications to a broker
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker"` // tcp://host:1883
	Topic    string `yaml:"topic" mapstructure:"topic"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	// PasswordFile reads the password from a mounted secret
	PasswordFile string `yaml:"password_file" mapstructure:"password_file"`
	Retain   bool   `yaml:"retain" mapstructure:"retain"`
}

// NotificationSettings configures the feed, toasts and push delivery
type NotificationSettings struct {
	MaxItems      int           `yaml:"max_items" mapstructure:"max_items"`           // feed cap, oldest entries are trimmed
	ToastDuration time.Duration `yaml:"toast_duration" mapstructure:"toast_duration"` // toast auto-dismiss delay
	Push          PushSettings  `yaml:"push" mapstructure:"push"`
	MQTT          MQTTSettings  `yaml:"mqtt" mapstructure:"mqtt"`
}

// StateSettings selects the persisted local state backend
type StateSettings struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite, mysql or memory
	Path   string `yaml:"path" mapstructure:"path"`     // sqlite database file
	DSN    string `yaml:"dsn" mapstructure:"dsn"`       // mysql data source name
	// DSNFile reads the data source name from a mounted secret
	DSNFile string `yaml:"dsn_file" mapstructure:"dsn_file"`
}

// WebServerSettings configures the HTTP API
type WebServerSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`   // host:port
	Metrics bool   `yaml:"metrics" mapstructure:"metrics"` // expose /api/v1/metrics
}

// Settings contains all configuration options for contractwatch
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Logging       logger.LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	ContractStore ContractStoreSettings `yaml:"contractstore" mapstructure:"contractstore"`
	Expiry        ExpirySettings        `yaml:"expiry" mapstructure:"expiry"`
	Notifications NotificationSettings  `yaml:"notifications" mapstructure:"notifications"`
	State         StateSettings         `yaml:"state" mapstructure:"state"`
	WebServer     WebServerSettings     `yaml:"webserver" mapstructure:"webserver"`
}

// Location returns the configured expiry timezone, falling back to local time
func (s *Settings) Location() *time.Location {
	if s == nil || s.Expiry.Timezone == "" || s.Expiry.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Expiry.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the .env file, the YAML config and CONTRACTWATCH_* environment
// variables, validates the result and stores it as the current settings.
// An empty configFile searches the default config paths.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	loadDotEnv()

	v := viper.New()
	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settings, nil
}

// Defaults returns settings built from default values only
func Defaults() (*Settings, error) {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// loadDotEnv loads a .env file from the working directory when present
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}
}

// initViper registers defaults, environment bindings and reads the config file.
// A missing config file is not an error, defaults and environment apply.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		return err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileParsing).
			Context("config_file", configFile).
			Build()
	}

	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "contractwatch"),
		"/etc/contractwatch",
	}, nil
}

// DefaultConfigYAML returns the embedded default configuration file
func DefaultConfigYAML() ([]byte, error) {
	return fs.ReadFile(configFiles, "config.yaml")
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SetSettings replaces the current settings instance
func SetSettings(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}
