package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/contractwatch/internal/api/middleware"
	v1 "github.com/tphakala/contractwatch/internal/api/v1"
	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/logger"
	"github.com/tphakala/contractwatch/internal/observability"
	"github.com/tphakala/contractwatch/internal/pipeline"
)

// Server is the HTTP server of the contractwatch API
type Server struct {
	echo     *echo.Echo
	config   *Config
	pipeline *pipeline.Pipeline
	metrics  *observability.Metrics
	logger   logger.Logger

	controller *v1.Controller
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records HTTP metrics and, when enabled, serves them
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithConfig replaces the configuration derived from settings
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// New creates the server and registers every route. It does not listen.
func New(settings *conf.Settings, p *pipeline.Pipeline, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:   ConfigFromSettings(settings),
		pipeline: p,
		logger:   logger.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.logger.Info("HTTP server initialized",
		logger.String("address", s.config.Listen),
		logger.Bool("metrics", s.config.Metrics && s.metrics != nil))
	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestID())

	var observe mw.RequestObserver
	if s.metrics != nil {
		observe = s.metrics.HTTP.RecordRequest
	}
	s.echo.Use(mw.NewRequestLogger(s.logger.Module("http"), observe))

	security := mw.DefaultSecurityConfig()
	security.AllowedOrigins = s.config.AllowedOrigins
	security.BodyLimit = s.config.BodyLimit
	s.echo.Use(mw.NewCORS(security))
	s.echo.Use(mw.NewBodyLimit(security.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders())
}

func (s *Server) setupRoutes() error {
	opts := []v1.Option{v1.WithLogger(s.logger.Module("v1"))}
	if s.config.Metrics && s.metrics != nil {
		opts = append(opts, v1.WithMetrics(s.metrics))
	}

	controller, err := v1.New(s.echo, s.pipeline, opts...)
	if err != nil {
		return err
	}
	s.controller = controller
	return nil
}

// ServeHTTP lets the server be used as a plain http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on the configured address until ctx is cancelled, then shuts
// down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", logger.String("address", s.config.Listen))
		errCh <- s.echo.Start(s.config.Listen)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.New(err).
				Component("api").
				Category(errors.CategoryNetwork).
				Context("listen", s.config.Listen).
				Build()
		}
		return nil
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped", logger.Duration("elapsed", time.Since(start)))
	return nil
}
