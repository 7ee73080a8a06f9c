package export

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tphakala/contractwatch/internal/app"
	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/export"
)

// Command writes the expiring contracts to an XLSX workbook
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the contracts expiring within the window to XLSX",
		Long: `Write the contracts expiring within the configured window to an Excel
workbook. The export does not notify and does not record a check.`,
		Args: cobra.NoArgs,
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

			expiring, err := a.Pipeline.Preview(cmd.Context())
			if err != nil {
				return err
			}

			day := a.Pipeline.Today()
			path := output
			if path == "" {
				path = export.Filename(day)
			} else if filepath.Ext(path) == "" {
				path = filepath.Join(path, export.Filename(day))
			}

			report := export.Report{Day: day, Expiring: expiring, Names: a.Pipeline.Names()}
			if err := export.SaveXLSX(path, report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d contracts to %s\n", len(expiring), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory (default: ./expiring-contracts-<date>.xlsx)")

	return cmd
}
