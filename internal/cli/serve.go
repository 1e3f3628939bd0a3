package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/receiptbook/internal/api"
	"github.com/mmynk/receiptbook/internal/auth"
	"github.com/mmynk/receiptbook/internal/service"
	"github.com/mmynk/receiptbook/internal/storage/sqlstore"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Open the configured database, apply pending migrations and serve the
API until SIGINT or SIGTERM. HTTP/2 without TLS is accepted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg := opts.Config
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required to serve")
	}

	store, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := newHandler(store, auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), opts)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts.Logger.Info("Server starting", "address", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		opts.Logger.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newHandler wires the services over store.
func newHandler(store *sqlstore.Store, jwtManager *auth.JWTManager, opts *RootOptions) http.Handler {
	callers := service.NewCallers(store.Users, store.Devices)
	svc := api.Services{
		Accounts: service.NewAccountService(
			auth.NewPasswordAuthenticator(store.Users, 0),
			jwtManager,
			store.Devices,
			callers,
			opts.Logger,
		),
		Budgets:    service.NewBudgetService(store.Budgets, callers),
		Categories: service.NewCategoryService(store.Categories, callers),
		Receipts:   service.NewReceiptService(store.Receipts, callers),
		Sync:       service.NewSyncService(store.BudgetFeed, store.CategoryFeed, store.ReceiptFeed, callers),
	}
	return api.NewServer(svc, jwtManager, func(ctx context.Context) error {
		return store.Conn().DB().PingContext(ctx)
	})
}
