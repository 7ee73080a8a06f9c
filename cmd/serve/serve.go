package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/contractwatch/internal/api"
	"github.com/tphakala/contractwatch/internal/app"
	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/logger"
	"github.com/tphakala/contractwatch/internal/pipeline"
)

// Command starts the scheduler and the HTTP API
func Command(settings *conf.Settings) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scheduler and the HTTP API",
		Long: `Run the expiration check on the configured cron schedule and serve the
notification feed, toasts and contract endpoints under /api/v1.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				settings.WebServer.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Override webserver.listen, e.g. 127.0.0.1:8080")

	return cmd
}

func run(ctx context.Context, settings *conf.Settings) (err error) {
	a, err := app.Open(ctx, settings, app.WithMetrics())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); err == nil {
			err = closeErr
		}
	}()

	var scheduler *pipeline.Scheduler
	if settings.Expiry.Schedule != "" {
		scheduler, err = pipeline.NewScheduler(a.Pipeline, settings.Expiry.Schedule, settings.Expiry.RunOnStartup)
		if err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	if !settings.WebServer.Enabled {
		a.Logger.Info("web server disabled, running scheduler only")
		<-ctx.Done()
		return nil
	}

	server, err := api.New(settings, a.Pipeline,
		api.WithLogger(a.Module("api")),
		api.WithMetrics(a.Metrics))
	if err != nil {
		return err
	}

	a.Logger.Info("contractwatch started",
		logger.String("listen", settings.WebServer.Listen),
		logger.String("schedule", settings.Expiry.Schedule))
	return server.Start(ctx)
}
