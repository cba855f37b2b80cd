package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/queue"
	"github.com/mmynk/splitledger/internal/server"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Connect API server",
	Long: `Run the Connect API server. With an AMQP URL configured, expense writes
publish recalculation requests for the worker; otherwise settlements are
recalculated inline.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	ctx, stop := notifyContext(cmd.Context())
	defer stop()

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	engine := newEngine(store)

	var trigger service.RecalculationTrigger = engine
	if cfg.AMQP.URL != "" {
		client, err := queue.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer client.Close()
		trigger = client
		slog.Info("Recalculations queued", "exchange", cfg.AMQP.Exchange, "queue", cfg.AMQP.Queue)
	}

	h := server.Handler(server.Deps{
		Store:          store,
		Engine:         engine,
		Authenticator:  auth.NewPasswordAuthenticator(store),
		JWT:            auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.TokenTTL()),
		Trigger:        trigger,
		MetricsEnabled: cfg.Metrics.Enabled,
		Logger:         slog.Default(),
	})
	return server.Run(ctx, cfg.Addr(), h)
}

func newEngine(store settlement.Store) *settlement.Engine {
	return settlement.NewEngine(store, settlement.WithUserQueryConcurrency(cfg.Settlement.UserQueryConcurrency))
}

// notifyContext is shared by the long-running commands.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
