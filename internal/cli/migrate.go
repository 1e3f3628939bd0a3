package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/receiptbook/internal/storage/sqlstore"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply every pending schema migration to the configured database and
print the resulting schema version.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			version, err := sqlstore.SchemaVersion(cmd.Context(), store.Conn())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (latest %d)\n", version, sqlstore.LatestSchemaVersion())
			return nil
		},
	}
}
