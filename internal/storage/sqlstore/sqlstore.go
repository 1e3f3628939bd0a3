// Package sqlstore implements the storage repositories on top of the
// versioned gateway. One Store owns one database connection.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/changefeed"
	"github.com/mmynk/receiptbook/internal/storage/dialect"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

// Ensure the repositories implement the storage contracts.
var (
	_ storage.BudgetRepository   = (*Budgets)(nil)
	_ storage.CategoryRepository = (*Categories)(nil)
	_ storage.ReceiptRepository  = (*Receipts)(nil)
	_ storage.UserRepository     = (*Users)(nil)
	_ storage.DeviceRepository   = (*Devices)(nil)
)

// Config selects the database.
type Config struct {
	// Driver is one of "sqlite", "postgres" or "mysql".
	Driver string

	// DSN is the file path for sqlite and the connection string otherwise.
	DSN string
}

// Option configures a Store.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock sets the clock used for modification timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger handed to the connection.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Store bundles the repositories and change feeds over one connection.
type Store struct {
	conn *sqldb.Conn

	Budgets    *Budgets
	Categories *Categories
	Receipts   *Receipts
	Users      *Users
	Devices    *Devices

	BudgetFeed   *changefeed.Feed[models.Budget, models.Budget]
	CategoryFeed *changefeed.Feed[models.Category, models.Category]
	ReceiptFeed  *changefeed.Feed[models.Receipt, models.ReceiptChange]
}

// Open connects to the configured database and runs pending migrations.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	opener, err := newOpener(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := sqldb.Open(ctx, cfg.Driver, opener, sqldb.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s, err := newStore(conn, sqldb.WithClock(o.now))
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func newStore(conn *sqldb.Conn, gwOpts ...sqldb.GatewayOption) (*Store, error) {
	budgets, err := sqldb.For[models.Budget](conn, gwOpts...)
	if err != nil {
		return nil, err
	}
	categories, err := sqldb.For[models.Category](conn, gwOpts...)
	if err != nil {
		return nil, err
	}
	receipts, err := sqldb.For[models.Receipt](conn, gwOpts...)
	if err != nil {
		return nil, err
	}
	items, err := sqldb.For[models.ReceiptItem](conn, gwOpts...)
	if err != nil {
		return nil, err
	}
	users, err := sqldb.For[models.User](conn, gwOpts...)
	if err != nil {
		return nil, err
	}
	devices, err := sqldb.For[models.UserDevice](conn, gwOpts...)
	if err != nil {
		return nil, err
	}

	s := &Store{
		conn:       conn,
		Budgets:    &Budgets{gw: budgets},
		Categories: &Categories{gw: categories},
		Receipts:   newReceipts(receipts, items),
		Users:      &Users{gw: users},
		Devices:    &Devices{gw: devices},
	}

	if s.BudgetFeed, err = changefeed.New(budgets, changefeed.Identity[models.Budget]()); err != nil {
		return nil, err
	}
	if s.CategoryFeed, err = changefeed.New(categories, changefeed.Identity[models.Category]()); err != nil {
		return nil, err
	}
	if s.ReceiptFeed, err = changefeed.New(receipts, s.Receipts.project); err != nil {
		return nil, err
	}
	return s, nil
}

// Conn returns the owned connection.
func (s *Store) Conn() *sqldb.Conn { return s.conn }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// newOpener returns the connect function for cfg. It runs again on every
// reconnect, so per-connection settings belong here.
func newOpener(cfg Config) (sqldb.Opener, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	switch cfg.Driver {
	case dialect.SQLite:
		// Create parent directory if it doesn't exist
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn := cfg.DSN + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		return func(ctx context.Context) (*sql.DB, error) {
			return sql.Open("sqlite", dsn)
		}, nil

	case dialect.Postgres:
		return func(ctx context.Context) (*sql.DB, error) {
			connector, err := pq.NewConnector(cfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("invalid postgres dsn: %w", err)
			}
			return sql.OpenDB(connector), nil
		}, nil

	case dialect.MySQL:
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		// Report matched rows, not changed rows, so an update that rewrites
		// identical values still counts as applied.
		mc.ClientFoundRows = true
		return func(ctx context.Context) (*sql.DB, error) {
			connector, err := mysql.NewConnector(mc)
			if err != nil {
				return nil, fmt.Errorf("invalid mysql config: %w", err)
			}
			return sql.OpenDB(connector), nil
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}
