package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridsync/carbon-engine/internal/engine"
)

var (
	predictLat      float64
	predictLon      float64
	predictRadius   float64
	predictYear     int
	predictMW       float64
	predictProvider string
	predictNoLive   bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict carbon intensity for a single coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := engine.Load(ctx, cfg)
		if err != nil {
			return err
		}

		opts := engine.PredictOptions{
			RadiusKm:    predictRadius,
			TargetYear:  predictYear,
			DisableLive: predictNoLive,
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if predictMW > 0 {
			fp, err := eng.PredictFootprint(ctx, predictLat, predictLon, predictMW, predictProvider, opts)
			if err != nil {
				return err
			}
			return enc.Encode(fp)
		}

		pred, err := eng.Predict(ctx, predictLat, predictLon, opts)
		if err != nil {
			return err
		}
		return enc.Encode(pred)
	},
}

func init() {
	predictCmd.Flags().Float64Var(&predictLat, "lat", 0, "latitude")
	predictCmd.Flags().Float64Var(&predictLon, "lon", 0, "longitude")
	predictCmd.Flags().Float64Var(&predictRadius, "radius-km", 0, "local search radius in km (default from config)")
	predictCmd.Flags().IntVar(&predictYear, "year", 0, "target year for trend projection")
	predictCmd.Flags().Float64Var(&predictMW, "it-load-mw", 0, "IT load in MW; when set, a full footprint is reported")
	predictCmd.Flags().StringVar(&predictProvider, "provider", "", "hosting provider for PUE lookup")
	predictCmd.Flags().BoolVar(&predictNoLive, "no-live", false, "skip the live feed override")
	predictCmd.MarkFlagRequired("lat")
	predictCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(predictCmd)
}
