package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/receiptbook/internal/storage"
)

// SeedOptions holds the seed command flags.
type SeedOptions struct {
	*RootOptions
	UserID string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add the default categories to a user",
		Long: `Insert the default spending categories the user does not have yet.
Names are compared case-insensitively and deleted categories still count.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.UserID, "user", "u", "", "id of the user to seed (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	ctx := cmd.Context()
	store, err := openStore(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Users.GetByID(ctx, opts.UserID); err != nil {
		if storage.IsNotFound(err) {
			return fmt.Errorf("user %s is not registered", opts.UserID)
		}
		return err
	}

	added, err := store.Categories.SeedDefaults(ctx, opts.UserID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %d categories\n", added)
	return nil
}
