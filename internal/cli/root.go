// Package cli implements the receiptbook command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/receiptbook/internal/config"
	"github.com/mmynk/receiptbook/pkg/logging"
)

// RootOptions holds the persistent flags and the configuration loaded from
// them before any subcommand runs.
type RootOptions struct {
	ConfigPath string

	Config config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "receiptbook",
		Short: "Receipt and budget sync server",
		Long: `receiptbook stores receipts, budgets and categories for registered
users and serves them to devices over an HTTP API with versioned writes
and per-user change feeds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.Config = cfg
			opts.Logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}
