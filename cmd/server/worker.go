package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/queue"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume recalculation requests from AMQP",
	Args:  cobra.NoArgs,
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	if cfg.AMQP.URL == "" {
		return errors.New("worker requires an AMQP URL (set AMQP_URL)")
	}

	ctx, stop := notifyContext(cmd.Context())
	defer stop()

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()

	client, err := queue.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	err = client.ConsumeRecalculate(ctx, recalculateHandler(newEngine(store)))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// recalculateHandler rebuilds the group named by a queue message. Missing
// groups and inconsistent ledgers are not retried.
func recalculateHandler(engine *settlement.Engine) queue.Handler {
	return func(ctx context.Context, msg *queue.RecalculateMessage) error {
		resolved, err := engine.Recalculate(ctx, msg.GroupID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) || errors.Is(err, calculator.ErrResidual) {
				return queue.Permanent(err)
			}
			return err
		}
		slog.InfoContext(ctx, "Recalculated settlements",
			"group_id", msg.GroupID,
			"reason", msg.Reason,
			"transfers", len(resolved))
		return nil
	}
}
