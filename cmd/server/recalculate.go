package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

var recalculateCmd = &cobra.Command{
	Use:   "recalculate GROUP_ID",
	Short: "Recalculate one group's settlements and print them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("initialize storage: %w", err)
		}
		defer store.Close()

		resolved, err := newEngine(store).Recalculate(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(resolved) == 0 {
			fmt.Fprintln(out, "All settled.")
			return nil
		}
		for _, r := range resolved {
			status := ""
			if r.Paid {
				status = " (paid)"
			}
			fmt.Fprintf(out, "%s pays %s %s%s\n",
				r.From.Username, r.To.Username, r.Amount.StringFixed(calculator.Scale), status)
		}
		return nil
	},
}
