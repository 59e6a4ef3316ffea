// Package zone loads grid-zone configurations and boundary polygons. Each
// zone YAML carries a center point, fallback generation-mix ratios, optional
// per-fuel emission factors, and optional installed capacity per fuel.
package zone

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gridsync/carbon-engine/internal/model"
	"github.com/gridsync/carbon-engine/internal/snapshot"
)

// zoneFile is the subset of the zone YAML schema the engine consumes. Field
// shapes vary between zones (lists vs maps, timestamped entries vs scalars),
// so the loose fields decode to any and are normalized afterwards.
type zoneFile struct {
	CenterPoint       any            `yaml:"center_point"`
	BoundingBox       [][]float64    `yaml:"bounding_box"`
	FallbackZoneMixes map[string]any `yaml:"fallbackZoneMixes"`
	EmissionFactors   map[string]any `yaml:"emissionFactors"`
	Capacity          map[string]any `yaml:"capacity"`
}

// Load parses every *.yaml under dir into a zone table, skipping zones
// without a usable center point or a positive mix-derived intensity.
// Results are cached keyed by directory mtime.
func Load(ctx context.Context, dir string, snap *snapshot.Store) ([]model.Zone, error) {
	mtime := snapshot.SourceMtime(dir)
	if snap != nil {
		var cached []model.Zone
		ok, err := snap.Load(ctx, "zones", mtime, &cached)
		if err != nil {
			return nil, err
		}
		if ok {
			zap.L().Info("zones loaded from snapshot", zap.Int("count", len(cached)))
			return cached, nil
		}
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, eris.Wrapf(err, "zone: glob %s", dir)
	}
	sort.Strings(paths)

	var zones []model.Zone
	skipped := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		z, ok := parseZoneFile(path)
		if !ok {
			skipped++
			continue
		}
		zones = append(zones, z)
	}
	if len(zones) == 0 {
		return nil, eris.Errorf("zone: no usable zone configs under %s", dir)
	}
	zap.L().Info("zones loaded", zap.Int("count", len(zones)), zap.Int("skipped", skipped))

	if snap != nil {
		if err := snap.Save(ctx, "zones", mtime, zones); err != nil {
			zap.L().Warn("zone snapshot save failed", zap.Error(err))
		}
	}
	return zones, nil
}

func parseZoneFile(path string) (model.Zone, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Zone{}, false
	}
	var zf zoneFile
	if err := yaml.Unmarshal(raw, &zf); err != nil {
		return model.Zone{}, false
	}

	z := model.Zone{Key: strings.TrimSuffix(filepath.Base(path), ".yaml")}
	lat, lon, ok := centerPoint(&zf)
	if !ok {
		return model.Zone{}, false
	}
	z.CenterLat, z.CenterLon = lat, lon

	z.EstimatedCI = mixIntensity(&zf)
	if z.EstimatedCI <= 0 {
		return model.Zone{}, false
	}

	z.CleanCapFrac, z.FossilCapFrac, z.CoalCapMW, z.HasCapacity = capacityFracs(zf.Capacity)
	return z, true
}

// centerPoint accepts either [lon, lat] or {lat:, lon:}, falling back to the
// bounding-box midpoint.
func centerPoint(zf *zoneFile) (lat, lon float64, ok bool) {
	switch cp := zf.CenterPoint.(type) {
	case []any:
		if len(cp) == 2 {
			lon, ok1 := asFloat(cp[0])
			lat, ok2 := asFloat(cp[1])
			if ok1 && ok2 {
				return lat, lon, true
			}
		}
	case map[string]any:
		lat, ok1 := asFloat(cp["lat"])
		lon, ok2 := asFloat(cp["lon"])
		if ok1 && ok2 {
			return lat, lon, true
		}
	}
	if len(zf.BoundingBox) == 2 && len(zf.BoundingBox[0]) == 2 && len(zf.BoundingBox[1]) == 2 {
		return (zf.BoundingBox[0][1] + zf.BoundingBox[1][1]) / 2,
			(zf.BoundingBox[0][0] + zf.BoundingBox[1][0]) / 2, true
	}
	return 0, 0, false
}

// mixIntensity estimates zone carbon intensity as the mix-ratio weighted sum
// of per-fuel emission factors, preferring the zone's own direct factors
// over the defaults.
func mixIntensity(zf *zoneFile) float64 {
	ratios := originRatios(zf.FallbackZoneMixes)
	if ratios == nil {
		return 0
	}
	direct, _ := zf.EmissionFactors["direct"].(map[string]any)

	ci := 0.0
	for fuel, rawRatio := range ratios {
		if fuel == "_source" || fuel == "datetime" || fuel == "_comment" {
			continue
		}
		ratio, ok := asFloat(rawRatio)
		if !ok || ratio <= 0 {
			continue
		}
		ef := model.ZoneFuelEF(fuel)
		if v, ok := latestValue(direct[fuel]); ok {
			ef = v
		}
		ci += ratio * ef
	}
	return ci
}

// originRatios digs the most recent powerOriginRatios entry out of
// fallbackZoneMixes. The entry is either a single {value: {...}} map or a
// chronological list of them.
func originRatios(mixes map[string]any) map[string]any {
	if mixes == nil {
		return nil
	}
	entry := mixes["powerOriginRatios"]
	if list, ok := entry.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		entry = list[len(list)-1]
	}
	m, ok := entry.(map[string]any)
	if !ok {
		return nil
	}
	if v, ok := m["value"].(map[string]any); ok {
		return v
	}
	return m
}

// latestValue extracts a numeric value from a timestamped entry, a list of
// timestamped entries (last wins), or a bare number.
func latestValue(entry any) (float64, bool) {
	switch e := entry.(type) {
	case []any:
		if len(e) == 0 {
			return 0, false
		}
		return latestValue(e[len(e)-1])
	case map[string]any:
		return asFloat(e["value"])
	default:
		return asFloat(entry)
	}
}

func capacityFracs(capacity map[string]any) (clean, fossil, coalMW float64, ok bool) {
	if len(capacity) == 0 {
		return 0, 0, 0, false
	}
	total := 0.0
	fuelMW := make(map[string]float64, len(capacity))
	for fuel, entries := range capacity {
		mw, valid := latestValue(entries)
		if !valid || mw < 0 {
			continue
		}
		fuelMW[fuel] = mw
		total += mw
	}
	if total <= 0 {
		return 0, 0, 0, false
	}
	for fuel, mw := range fuelMW {
		if model.IsCleanCapacityFuel(fuel) {
			clean += mw
		}
		if model.IsFossilCapacityFuel(fuel) {
			fossil += mw
		}
	}
	return clean / total, fossil / total, fuelMW["coal"], true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
