package asset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridsync/carbon-engine/internal/model"
	"github.com/gridsync/carbon-engine/internal/snapshot"
)

// fossil-operation CSV columns
var fossilCols = []string{
	"source_name", "source_type", "iso3_country", "start_time",
	"lat", "lon", "emissions_quantity", "capacity",
}

// LoadFossilOps reads the non-power fossil operation CSVs (coal mining,
// oil refining, oil and gas production), keeps each file's latest
// reporting year, and deduplicates to one operation per id with emissions
// summed. The sector label comes from the source file name. An empty path
// list means the layer is absent.
func LoadFossilOps(ctx context.Context, paths []string, snap *snapshot.Store) (*model.FossilOpTable, error) {
	if len(paths) == 0 {
		return &model.FossilOpTable{}, nil
	}
	mtime := snapshot.SourceMtime(paths...)
	if snap != nil {
		var cached model.FossilOpTable
		ok, err := snap.Load(ctx, "fossil_ops", mtime, &cached)
		if err != nil {
			return nil, err
		}
		if ok {
			zap.L().Info("fossil operations loaded from snapshot", zap.Int("count", cached.Len()))
			return &cached, nil
		}
	}

	table := &model.FossilOpTable{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := parseFossilFile(path, table); err != nil {
			return nil, err
		}
	}
	zap.L().Info("fossil operations loaded",
		zap.Int("count", table.Len()), zap.Int("skipped", table.Skipped))

	if snap != nil {
		if err := snap.Save(ctx, "fossil_ops", mtime, table); err != nil {
			zap.L().Warn("fossil ops snapshot save failed", zap.Error(err))
		}
	}
	return table, nil
}

func parseFossilFile(path string, table *model.FossilOpTable) error {
	parseCount.Add(1)
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "asset: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return eris.Wrapf(err, "asset: read header %s", path)
	}
	col, err := headerIndex(header, fossilCols)
	if err != nil {
		return eris.Wrapf(err, "asset: %s", path)
	}
	sector := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	type fileRow struct {
		op   model.FossilOp
		year int
	}
	var rows []fileRow
	latest := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			table.Skipped++
			continue
		}
		lat, err1 := strconv.ParseFloat(rec[col["lat"]], 64)
		lon, err2 := strconv.ParseFloat(rec[col["lon"]], 64)
		emis, err3 := strconv.ParseFloat(rec[col["emissions_quantity"]], 64)
		year, okYear := parseYear(rec[col["start_time"]])
		name := rec[col["source_name"]]
		if err1 != nil || err2 != nil || err3 != nil || !okYear || name == "" {
			table.Skipped++
			continue
		}
		capMW, _ := parseOptional(rec[col["capacity"]])
		rows = append(rows, fileRow{
			op: model.FossilOp{
				ID:         name,
				Sector:     sector,
				Country:    rec[col["iso3_country"]],
				Lat:        lat,
				Lon:        lon,
				EmissionsT: emis,
				CapacityMW: capMW,
			},
			year: year,
		})
		if year > latest {
			latest = year
		}
	}

	// Keep the file's latest year only; duplicates sum emissions and keep
	// the first value of everything else.
	byName := make(map[string]*model.FossilOp)
	order := make([]string, 0)
	for _, fr := range rows {
		if fr.year != latest {
			continue
		}
		if op := byName[fr.op.ID]; op != nil {
			op.EmissionsT += fr.op.EmissionsT
			continue
		}
		op := fr.op
		byName[op.ID] = &op
		order = append(order, op.ID)
	}
	sort.Strings(order)
	for _, name := range order {
		table.Ops = append(table.Ops, *byName[name])
	}
	if latest > table.Year {
		table.Year = latest
	}
	return nil
}

// dcEntry matches one record of the data-center registry JSON.
type dcEntry struct {
	LonLat   []float64 `json:"lonlat"`
	Provider string    `json:"provider"`
	ZoneKey  string    `json:"zoneKey"`
}

// LoadDataCenters reads the data-center registry keyed by site id. Entries
// without coordinates are skipped. An empty path means the layer is absent.
func LoadDataCenters(path string) ([]model.DataCenter, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "asset: read data centers %s", path)
	}
	var entries map[string]dcEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrapf(err, "asset: parse data centers %s", path)
	}

	out := make([]model.DataCenter, 0, len(entries))
	for id, e := range entries {
		if len(e.LonLat) != 2 {
			continue
		}
		provider := e.Provider
		if provider == "" {
			provider = "unknown"
		}
		out = append(out, model.DataCenter{
			ID:       id,
			Provider: provider,
			Zone:     e.ZoneKey,
			Lon:      e.LonLat[0],
			Lat:      e.LonLat[1],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	zap.L().Info("data centers loaded", zap.Int("count", len(out)))
	return out, nil
}
