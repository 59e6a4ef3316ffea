package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridsync/carbon-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "carbon-engine",
	Short: "Grid carbon intensity estimation engine",
	Long:  "Fuses country statistics, point assets, zone polygons, and a live feed into carbon intensity predictions for arbitrary coordinates, single points or whole grids.",
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
