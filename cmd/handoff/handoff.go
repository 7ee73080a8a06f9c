package handoff

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/contractwatch/internal/app"
	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/notification"
	"github.com/tphakala/contractwatch/internal/observability/metrics"
	"github.com/tphakala/contractwatch/internal/pipeline"
)

// Command stages and delivers the login toast handoff
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Stage or deliver the pending login toast",
	}

	cmd.AddCommand(stageCommand(settings), setCommand(settings), consumeCommand(settings))

	return cmd
}

func withPipeline(cmd *cobra.Command, settings *conf.Settings, fn func(p *pipeline.Pipeline) (*pipeline.Outcome, error)) (err error) {
	a, err := app.Open(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); err == nil {
			err = closeErr
		}
	}()

	out, err := fn(a.Pipeline)
	if err != nil {
		return err
	}
	if out != nil {
		fmt.Fprintln(cmd.OutOrStdout(), out.Result)
		if out.Notification != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", out.Notification.Title, out.Notification.Message)
		}
	}
	return nil
}

func stageCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stage",
		Short: "Run the gated check and stage a toast for the next dashboard visit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, settings, func(p *pipeline.Pipeline) (*pipeline.Outcome, error) {
				return p.StageHandoff(cmd.Context())
			})
		},
	}
}

func setCommand(settings *conf.Settings) *cobra.Command {
	var title, message, typ string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Stage an arbitrary toast for the next dashboard visit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, settings, func(p *pipeline.Pipeline) (*pipeline.Outcome, error) {
				if err := p.SetHandoff(title, message, notification.ParseType(typ)); err != nil {
					return nil, err
				}
				return &pipeline.Outcome{Result: metrics.ResultStaged, Day: p.Today()}, nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Toast title")
	cmd.Flags().StringVar(&message, "message", "", "Toast message")
	cmd.Flags().StringVar(&typ, "type", string(notification.TypeInfo), "Toast type (info, success, warning, error)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func consumeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Deliver the pending toast and record today's check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, settings, func(p *pipeline.Pipeline) (*pipeline.Outcome, error) {
				return p.ConsumeHandoff()
			})
		},
	}
}
