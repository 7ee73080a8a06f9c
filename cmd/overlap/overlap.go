package overlap

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/contractwatch/internal/app"
	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/contract"
	"github.com/tphakala/contractwatch/internal/dates"
	"github.com/tphakala/contractwatch/internal/errors"
)

// Command checks a proposed contract against the worker's active contracts
func Command(settings *conf.Settings) *cobra.Command {
	var workerID, start, end string

	cmd := &cobra.Command{
		Use:   "overlap",
		Short: "Check whether a new contract would overlap an active one",
		Long: `Check a proposed contract period for a worker against the worker's active
contracts. Omit --end for an indefinite contract. Dates accept 2024-03-15 or
15/03/2024.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			candidate := contract.Candidate{WorkerID: workerID}
			if candidate.Start, err = dates.Parse(start); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			if end != "" {
				e, err := dates.Parse(end)
				if err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
				candidate.End = &e
			}

			a, err := app.Open(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := a.Close(); err == nil {
					err = closeErr
				}
			}()

			err = a.Pipeline.ValidateCandidate(cmd.Context(), candidate)
			switch {
			case err == nil:
				fmt.Fprintln(cmd.OutOrStdout(), "No overlap, the contract can be created")
				return nil
			case errors.IsCategory(err, errors.CategoryValidation):
				return errors.NewStd(contract.UserMessage(err))
			default:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&workerID, "worker", "w", "", "Worker ID")
	cmd.Flags().StringVarP(&start, "start", "s", "", "Start date of the new contract")
	cmd.Flags().StringVarP(&end, "end", "e", "", "End date of the new contract, empty for indefinite")
	_ = cmd.MarkFlagRequired("worker")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}
