package logger

// Supported logger backends
const (
	BackendSlog = "slog"
	BackendZap  = "zap"
)

// DefaultLogLevel is used when no level is configured.
const DefaultLogLevel = "info"

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"level" json:"level" mapstructure:"level"`                         // default log level for all modules
	Backend      string            `yaml:"backend" json:"backend" mapstructure:"backend"`                   // slog or zap
	JSON         bool              `yaml:"json" json:"json" mapstructure:"json"`                            // console output as JSON instead of text
	File         string            `yaml:"file" json:"file" mapstructure:"file"`                            // optional JSON log file path
	Timezone     string            `yaml:"timezone" json:"timezone" mapstructure:"timezone"`                // "Local", "UTC" or an IANA name
	ModuleLevels map[string]string `yaml:"module_levels" json:"module_levels" mapstructure:"module_levels"` // per-module log levels
}

// applyConfigDefaults fills unset fields with defaults.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendSlog
	}
	if cfg.ModuleLevels == nil {
		cfg.ModuleLevels = make(map[string]string)
	}
}

// levelForModule resolves the effective level of a module. The longest
// configured dotted prefix wins, so "state" covers "state.sqlite".
func levelForModule(cfg *LoggingConfig, module string) string {
	best := ""
	level := cfg.DefaultLevel
	for name, lvl := range cfg.ModuleLevels {
		if name == module || (len(module) > len(name) && module[:len(name)] == name && module[len(name)] == '.') {
			if len(name) > len(best) {
				best = name
				level = lvl
			}
		}
	}
	return level
}
