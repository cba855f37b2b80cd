package main

import (
	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/pkg/logging"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "splitledger",
	Short: "Group expense ledger with debt simplification",
	Long: `splitledger records shared expenses within groups and keeps, for every
group, the shortest list of transfers that settles all debts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		logging.Setup(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recalculateCmd)
}
