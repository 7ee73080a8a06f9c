// Package app assembles the runtime shared by the contractwatch commands:
// root logger, metrics and the expiration pipeline.
package app

import (
	"context"

	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/logger"
	"github.com/tphakala/contractwatch/internal/observability"
	"github.com/tphakala/contractwatch/internal/pipeline"
)

// App owns the resources opened for one command invocation
type App struct {
	Settings *conf.Settings
	Logger   logger.Logger
	Metrics  *observability.Metrics
	Pipeline *pipeline.Pipeline

	root logger.RootLogger
}

// Option configures Open
type Option func(*options)

type options struct {
	metrics bool
}

// WithMetrics creates the Prometheus registry and wires it into the pipeline
func WithMetrics() Option {
	return func(o *options) { o.metrics = true }
}

// Open builds the logger and the pipeline from settings
func Open(ctx context.Context, settings *conf.Settings, opts ...Option) (*App, error) {
	if settings == nil {
		return nil, errors.Newf("settings cannot be nil").
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	root, err := logger.New(&settings.Logging)
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_logger").
			Build()
	}

	a := &App{Settings: settings, root: root, Logger: root.Module("app")}

	if o.metrics {
		if a.Metrics, err = observability.NewMetrics(); err != nil {
			_ = root.Close()
			return nil, err
		}
		a.Metrics.ObserveErrors()
	}

	a.Pipeline, err = pipeline.FromSettings(ctx, settings, root.Module("pipeline"), a.Metrics)
	if err != nil {
		a.Logger.Error("failed to assemble pipeline", logger.Error(err))
		if a.Metrics != nil {
			errors.ClearErrorHooks()
		}
		_ = root.Close()
		return nil, err
	}
	return a, nil
}

// Module returns a named logger derived from the root logger
func (a *App) Module(name string) logger.Logger {
	return a.root.Module(name)
}

// Close releases the pipeline and flushes the logs
func (a *App) Close() error {
	err := a.Pipeline.Close()
	if a.Metrics != nil {
		errors.ClearErrorHooks()
	}
	if flushErr := a.root.Flush(); flushErr != nil {
		err = errors.Join(err, flushErr)
	}
	if closeErr := a.root.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}
