package asset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gridsync/carbon-engine/internal/model"
	"github.com/gridsync/carbon-engine/internal/snapshot"
	"github.com/gridsync/carbon-engine/internal/trend"
)

// emitting-asset CSV columns
var emittingCols = []string{
	"source_name", "source_type", "start_time", "iso3_country",
	"lat", "lon", "emissions_quantity", "capacity",
	"emissions_factor", "activity", "other5",
}

// clean-asset CSV columns
var cleanCols = []string{
	"name", "country", "primary_fuel", "capacity_mw", "latitude", "longitude",
}

// cleanFuelNames maps raw primary fuels of zero-emission plants to fuel
// categories. Anything not listed is excluded from the clean table.
var cleanFuelNames = map[string]model.FuelCategory{
	"Solar":          model.FuelSolar,
	"Wind":           model.FuelWind,
	"Hydro":          model.FuelHydro,
	"Nuclear":        model.FuelNuclear,
	"Geothermal":     model.FuelGeothermal,
	"Wave and Tidal": model.FuelHydro,
}

// parseCount increments once per source file parsed from disk. A snapshot
// hit skips parsing entirely, which tests observe through this counter.
var parseCount atomic.Int64

// ParseCount reports the number of source-file parse passes so far.
func ParseCount() int64 { return parseCount.Load() }

// rawRow is one annual reporting record before deduplication.
type rawRow struct {
	name      string
	rawType   string
	country   string
	year      int
	lat, lon  float64
	emissions float64
	capacity  float64
	hasCap    bool
	ef        float64
	hasEF     bool
	activity  float64
	hasAct    bool
	cf        float64
	hasCF     bool
}

// accum holds the per-asset per-year reduction state. Flow quantities sum,
// rates average, categorical and location fields keep the first value seen.
type accum struct {
	first    rawRow
	emisSum  float64
	actSum   float64
	efSum    float64
	efCount  int
	cfSum    float64
	cfCount  int
}

// LoadEmitting reads the emitting-asset CSVs, deduplicates to one asset per
// id for the latest reporting year, fits per-asset emission trends on
// complete years, and caches the result keyed by source mtime. A nil snap
// disables caching. Missing source files are fatal; malformed rows are
// skipped and counted.
func LoadEmitting(ctx context.Context, paths []string, trendClamp float64, snap *snapshot.Store) (*model.AssetTable, error) {
	if len(paths) == 0 {
		return nil, eris.New("asset: no emitting source files configured")
	}
	mtime := snapshot.SourceMtime(paths...)
	if snap != nil {
		var cached model.AssetTable
		ok, err := snap.Load(ctx, "assets_emitting", mtime, &cached)
		if err != nil {
			return nil, err
		}
		if ok {
			zap.L().Info("assets loaded from snapshot",
				zap.Int("count", cached.Len()), zap.Int("year", cached.Year))
			return &cached, nil
		}
	}

	rows, skipped, err := parseEmittingFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("asset: no usable emitting rows")
	}

	table := reduceEmitting(rows, trendClamp)
	table.Skipped = int(skipped)
	zap.L().Info("assets loaded",
		zap.Int("count", table.Len()),
		zap.Int("year", table.Year),
		zap.Int("skipped", table.Skipped))

	if snap != nil {
		if err := snap.Save(ctx, "assets_emitting", mtime, table); err != nil {
			zap.L().Warn("asset snapshot save failed", zap.Error(err))
		}
	}
	return table, nil
}

func parseEmittingFiles(ctx context.Context, paths []string) ([]rawRow, int64, error) {
	var mu sync.Mutex
	var all []rawRow
	var skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			rows, err := parseEmittingFile(ctx, path, &skipped)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, rows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return all, skipped.Load(), nil
}

func parseEmittingFile(ctx context.Context, path string, skipped *atomic.Int64) ([]rawRow, error) {
	parseCount.Add(1)
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "asset: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "asset: read header %s", path)
	}
	col, err := headerIndex(header, emittingCols)
	if err != nil {
		return nil, eris.Wrapf(err, "asset: %s", path)
	}

	var rows []rawRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped.Add(1)
			continue
		}
		row, ok := parseEmittingRow(rec, col)
		if !ok {
			skipped.Add(1)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseEmittingRow(rec []string, col map[string]int) (rawRow, bool) {
	lat, err1 := strconv.ParseFloat(rec[col["lat"]], 64)
	lon, err2 := strconv.ParseFloat(rec[col["lon"]], 64)
	emis, err3 := strconv.ParseFloat(rec[col["emissions_quantity"]], 64)
	year, okYear := parseYear(rec[col["start_time"]])
	if err1 != nil || err2 != nil || err3 != nil || !okYear {
		return rawRow{}, false
	}
	row := rawRow{
		name:      rec[col["source_name"]],
		rawType:   rec[col["source_type"]],
		country:   rec[col["iso3_country"]],
		year:      year,
		lat:       lat,
		lon:       lon,
		emissions: emis,
	}
	if row.name == "" {
		return rawRow{}, false
	}
	row.capacity, row.hasCap = parseOptional(rec[col["capacity"]])
	row.ef, row.hasEF = parseOptional(rec[col["emissions_factor"]])
	row.activity, row.hasAct = parseOptional(rec[col["activity"]])
	row.cf, row.hasCF = parseOptional(rec[col["other5"]])
	return row, true
}

// parseYear extracts the calendar year from a timestamp like
// "2022-01-01 00:00:00".
func parseYear(s string) (int, bool) {
	if len(s) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y < 1900 || y > 2200 {
		return 0, false
	}
	return y, true
}

func parseOptional(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func headerIndex(header, want []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range want {
		if _, ok := col[name]; !ok {
			return nil, eris.Errorf("missing column %q", name)
		}
	}
	return col, nil
}

// reduceEmitting collapses annual rows into one asset per id for the latest
// reporting year, and records the full multi-year emission series used for
// trend fitting. The latest year is treated as preliminary, so trends fit
// on years strictly before it.
func reduceEmitting(rows []rawRow, trendClamp float64) *model.AssetTable {
	latest := 0
	for _, r := range rows {
		if r.year > latest {
			latest = r.year
		}
	}

	// Per-asset per-year reductions.
	type yearKey struct {
		name string
		year int
	}
	byYear := make(map[yearKey]*accum)
	order := make([]string, 0)
	seen := make(map[string]bool)
	for _, r := range rows {
		k := yearKey{r.name, r.year}
		a := byYear[k]
		if a == nil {
			a = &accum{first: r}
			byYear[k] = a
		}
		a.emisSum += r.emissions
		if r.hasAct {
			a.actSum += r.activity
		}
		if r.hasEF {
			a.efSum += r.ef
			a.efCount++
		}
		if r.hasCF {
			a.cfSum += r.cf
			a.cfCount++
		}
		if r.year == latest && !seen[r.name] {
			seen[r.name] = true
			order = append(order, r.name)
		}
	}

	// Collect emission series across all years for every latest-year asset.
	series := make(map[string]map[int]float64)
	for k, a := range byYear {
		if !seen[k.name] {
			continue
		}
		m := series[k.name]
		if m == nil {
			m = make(map[int]float64)
			series[k.name] = m
		}
		m[k.year] = a.emisSum
	}

	sort.Strings(order)
	table := &model.AssetTable{
		Year:         latest,
		BaselineYear: latest - 1,
		Assets:       make([]model.Asset, 0, len(order)),
	}
	for _, name := range order {
		a := byYear[yearKey{name, latest}]
		asset := model.Asset{
			ID:          name,
			RawType:     a.first.rawType,
			Fuel:        ClassifyFuel(a.first.rawType),
			Country:     a.first.country,
			Lat:         a.first.lat,
			Lon:         a.first.lon,
			EmissionsT:  a.emisSum,
			ActivityMWh: a.actSum,
			Series:      series[name],
		}
		if a.first.hasCap {
			asset.CapacityMW = a.first.capacity
		}
		if a.efCount > 0 {
			asset.EmissionFactor = a.efSum / float64(a.efCount)
		}
		if a.cfCount > 0 {
			asset.CapacityFactor = a.cfSum / float64(a.cfCount)
		}
		asset.TrendB = trend.AssetCoefficient(asset.Series, table.BaselineYear, trendClamp)
		table.Assets = append(table.Assets, asset)
	}
	return table
}

// LoadClean reads the zero-emission plant CSVs. These plants carry capacity
// but no emissions; they dilute local intensity near clean-dominated grids.
func LoadClean(ctx context.Context, paths []string, snap *snapshot.Store) (*model.AssetTable, error) {
	if len(paths) == 0 {
		return &model.AssetTable{}, nil
	}
	mtime := snapshot.SourceMtime(paths...)
	if snap != nil {
		var cached model.AssetTable
		ok, err := snap.Load(ctx, "assets_clean", mtime, &cached)
		if err != nil {
			return nil, err
		}
		if ok {
			zap.L().Info("clean assets loaded from snapshot", zap.Int("count", cached.Len()))
			return &cached, nil
		}
	}

	table := &model.AssetTable{}
	var skipped int
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := parseCleanFile(path, table)
		if err != nil {
			return nil, err
		}
		skipped += n
	}
	table.Skipped = skipped
	zap.L().Info("clean assets loaded",
		zap.Int("count", table.Len()), zap.Int("skipped", skipped))

	if snap != nil {
		if err := snap.Save(ctx, "assets_clean", mtime, table); err != nil {
			zap.L().Warn("clean asset snapshot save failed", zap.Error(err))
		}
	}
	return table, nil
}

func parseCleanFile(path string, table *model.AssetTable) (int, error) {
	parseCount.Add(1)
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "asset: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return 0, eris.Wrapf(err, "asset: read header %s", path)
	}
	col, err := headerIndex(header, cleanCols)
	if err != nil {
		return 0, eris.Wrapf(err, "asset: %s", path)
	}

	skipped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		fuel, ok := cleanFuelNames[rec[col["primary_fuel"]]]
		if !ok {
			continue
		}
		lat, err1 := strconv.ParseFloat(rec[col["latitude"]], 64)
		lon, err2 := strconv.ParseFloat(rec[col["longitude"]], 64)
		capMW, err3 := strconv.ParseFloat(rec[col["capacity_mw"]], 64)
		if err1 != nil || err2 != nil || err3 != nil || capMW <= 0 {
			skipped++
			continue
		}
		table.Assets = append(table.Assets, model.Asset{
			ID:         rec[col["name"]],
			RawType:    rec[col["primary_fuel"]],
			Fuel:       fuel,
			Country:    rec[col["country"]],
			Lat:        lat,
			Lon:        lon,
			CapacityMW: capMW,
		})
	}
	return skipped, nil
}
