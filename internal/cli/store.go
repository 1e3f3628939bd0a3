package cli

import (
	"context"

	"github.com/mmynk/receiptbook/internal/storage/sqlstore"
)

// openStore opens the configured database. Opening runs pending migrations.
func openStore(ctx context.Context, opts *RootOptions) (*sqlstore.Store, error) {
	db := opts.Config.Database
	store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: db.Driver, DSN: db.DSN}, sqlstore.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("Storage initialized", "driver", db.Driver)
	return store, nil
}
