package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gridsync/carbon-engine/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Load all data layers and report their sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := engine.Load(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		counts := eng.Health()
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Printf("%-16s %d\n", k, counts[k])
		}
		fmt.Printf("%-16s %t\n", "model_loaded", eng.ModelLoaded())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
