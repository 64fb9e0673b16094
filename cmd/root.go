package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zachmoshe/il-elections/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "il-elections",
	Short: "Israeli elections data preprocessing pipeline",
	Long:  "Parses per-campaign ballot votes and metadata files, resolves every ballot to a location through a cached geocoder, aggregates results per location and writes campaign artifacts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
