package scan

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/contractwatch/internal/app"
	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/observability/metrics"
)

// Command runs one gated expiration check
func Command(settings *conf.Settings) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the daily contract expiration check",
		Long: `Fetch the contracts and notify about those ending within the configured
window. The check runs at most once per day unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := app.Open(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := a.Close(); err == nil {
					err = closeErr
				}
			}()

			out, err := a.Pipeline.Run(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("expiration check failed: %w", err)
			}

			w := cmd.OutOrStdout()
			switch out.Result {
			case metrics.ResultSkipped:
				fmt.Fprintf(w, "Already checked on %s, use --force to check again\n", dates.FormatISO(out.Day))
			case metrics.ResultNothingDue:
				fmt.Fprintf(w, "No contracts expire within %d days\n", a.Pipeline.WindowDays())
			default:
				fmt.Fprintf(w, "%s\n%s\n", out.Notification.Title, out.Notification.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Run even if today's check is already recorded")

	return cmd
}
