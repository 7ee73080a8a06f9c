// Package api provides the HTTP server of contractwatch. The JSON endpoints
// live in the v1 subpackage.
package api

import (
	"net"
	"time"

	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/errors"
)

// Default constants for the HTTP server.
const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "1M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen string // host:port

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit      string   // maximum request body size, e.g. "1M"
	AllowedOrigins []string // CORS allowed origins
	Metrics        bool     // expose /api/v1/metrics
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		AllowedOrigins:  []string{"*"},
	}
}

// ConfigFromSettings overlays the web server settings on DefaultConfig
func ConfigFromSettings(s *conf.Settings) *Config {
	cfg := DefaultConfig()
	if s == nil {
		return cfg
	}
	if s.WebServer.Listen != "" {
		cfg.Listen = s.WebServer.Listen
	}
	cfg.Metrics = s.WebServer.Metrics
	return cfg
}

// Validate checks the listen address
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("listen", c.Listen).
			Build()
	}
	return nil
}
