package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/contractwatch/cmd/configcmd"
	"github.com/tphakala/contractwatch/cmd/export"
	"github.com/tphakala/contractwatch/cmd/handoff"
	"github.com/tphakala/contractwatch/cmd/notifications"
	"github.com/tphakala/contractwatch/cmd/overlap"
	"github.com/tphakala/contractwatch/cmd/scan"
	"github.com/tphakala/contractwatch/cmd/serve"
	"github.com/tphakala/contractwatch/cmd/version"
	"github.com/tphakala/contractwatch/internal/conf"
)

// RootCommand creates the contractwatch command tree. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var (
		configFile string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "contractwatch",
		Short:         "Contract expiration notifications",
		Long:          "contractwatch scans the HR contract store once a day and notifies about fixed-term contracts that are about to end.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/contractwatch, /etc/contractwatch)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	configCmd := configcmd.Command()
	versionCmd := version.Command()

	rootCmd.AddCommand(
		scan.Command(settings),
		serve.Command(settings),
		notifications.Command(settings),
		overlap.Command(settings),
		export.Command(settings),
		handoff.Command(settings),
		configCmd,
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// config and version must work without a valid configuration
		for c := cmd; c != nil; c = c.Parent() {
			if c == configCmd || c == versionCmd {
				return nil
			}
		}

		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded
		if debug {
			settings.Debug = true
			settings.Logging.DefaultLevel = "debug"
		}
		return nil
	}

	return rootCmd
}
