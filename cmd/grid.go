package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridsync/carbon-engine/internal/engine"
	"github.com/gridsync/carbon-engine/internal/model"
)

var (
	gridInput  string
	gridOutput string
	gridMW     float64
	gridYear   int
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Batch-predict carbon intensity for a CSV of coordinates",
	Long:  "Reads a CSV with lat and lon columns, scores every row through the vectorized path, and writes the results as CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lats, lons, err := readCoordCSV(gridInput)
		if err != nil {
			return err
		}

		eng, err := engine.Load(ctx, cfg)
		if err != nil {
			return err
		}

		res, err := eng.PredictGridBatch(ctx, lats, lons, gridMW, gridYear)
		if err != nil {
			return err
		}

		out := os.Stdout
		if gridOutput != "" {
			f, err := os.Create(gridOutput)
			if err != nil {
				return eris.Wrapf(err, "grid: create %s", gridOutput)
			}
			defer f.Close()
			out = f
		}

		w := csv.NewWriter(out)
		header := []string{"lat", "lon", "intensity", "green_score", "grade", "annual_tonnes", "trend"}
		if err := w.Write(header); err != nil {
			return eris.Wrap(err, "grid: write header")
		}
		for i, ci := range res.Intensity {
			score := model.GreenScore(ci)
			row := []string{
				strconv.FormatFloat(lats[i], 'f', 6, 64),
				strconv.FormatFloat(lons[i], 'f', 6, 64),
				strconv.FormatFloat(ci, 'f', 2, 64),
				strconv.FormatFloat(score, 'f', 1, 64),
				model.Grade(score),
				strconv.FormatFloat(res.Footprint[i], 'f', 2, 64),
				strconv.FormatFloat(res.TrendB[i], 'f', 4, 64),
			}
			if err := w.Write(row); err != nil {
				return eris.Wrap(err, "grid: write row")
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return eris.Wrap(err, "grid: flush output")
		}

		zap.L().Info("grid batch complete",
			zap.Int("points", len(lats)),
			zap.Duration("total", res.Timing.Total))

		return nil
	},
}

func readCoordCSV(path string) ([]float64, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "grid: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, nil, eris.Wrap(err, "grid: read header")
	}

	latIdx, lonIdx := -1, -1
	for i, col := range header {
		switch col {
		case "lat", "latitude":
			latIdx = i
		case "lon", "lng", "longitude":
			lonIdx = i
		}
	}
	if latIdx < 0 || lonIdx < 0 {
		return nil, nil, eris.New("grid: input must have lat and lon columns")
	}

	var lats, lons []float64
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "grid: read row")
		}
		line++
		lat, err := strconv.ParseFloat(rec[latIdx], 64)
		if err != nil {
			return nil, nil, eris.Wrap(err, fmt.Sprintf("grid: bad lat on line %d", line))
		}
		lon, err := strconv.ParseFloat(rec[lonIdx], 64)
		if err != nil {
			return nil, nil, eris.Wrap(err, fmt.Sprintf("grid: bad lon on line %d", line))
		}
		lats = append(lats, lat)
		lons = append(lons, lon)
	}
	if len(lats) == 0 {
		return nil, nil, eris.New("grid: no coordinates in input")
	}

	return lats, lons, nil
}

func init() {
	gridCmd.Flags().StringVar(&gridInput, "input", "", "input CSV with lat and lon columns")
	gridCmd.Flags().StringVar(&gridOutput, "output", "", "output CSV path (default stdout)")
	gridCmd.Flags().Float64Var(&gridMW, "it-load-mw", 1, "IT load in MW used for footprints")
	gridCmd.Flags().IntVar(&gridYear, "year", 0, "target year for trend projection")
	gridCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(gridCmd)
}
