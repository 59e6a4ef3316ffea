// Package engine owns the full prediction lifecycle: parallel layer
// loading at startup, an immutable data snapshot, and the single-point and
// batch query paths over it.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gridsync/carbon-engine/internal/asset"
	"github.com/gridsync/carbon-engine/internal/config"
	"github.com/gridsync/carbon-engine/internal/country"
	"github.com/gridsync/carbon-engine/internal/fusion"
	"github.com/gridsync/carbon-engine/internal/inference"
	"github.com/gridsync/carbon-engine/internal/model"
	"github.com/gridsync/carbon-engine/internal/snapshot"
	"github.com/gridsync/carbon-engine/internal/spatial"
	"github.com/gridsync/carbon-engine/internal/trend"
	"github.com/gridsync/carbon-engine/internal/zone"
	"github.com/gridsync/carbon-engine/pkg/ukgrid"
)

// Engine is an immutable prediction context built once by Load. Concurrent
// queries need no locking; Reload builds a fresh Engine instead of
// mutating this one.
type Engine struct {
	cfg      *config.Config
	resolver *fusion.Resolver
	artifact *inference.Artifact // nil when no model is loaded
	chain    *inference.Chain
	trends   map[string]model.TrendRecord
	counts   map[string]int
	loadedAt time.Time
}

// Load builds an Engine from the configured sources, loading independent
// layers in parallel. Missing required sources are fatal; a missing model
// artifact degrades to baseline-only predictions.
func Load(ctx context.Context, cfg *config.Config) (*Engine, error) {
	var snap *snapshot.Store
	if cfg.Data.SnapshotPath != "" {
		s, err := snapshot.Open(cfg.Data.SnapshotPath)
		if err != nil {
			zap.L().Warn("snapshot store unavailable, caching disabled", zap.Error(err))
		} else {
			snap = s
			defer s.Close()
		}
	}

	var (
		emitting   *model.AssetTable
		clean      *model.AssetTable
		fossilOps  *model.FossilOpTable
		dcs        []model.DataCenter
		zones      []model.Zone
		boundaries *spatial.PolygonIndex
		profiles   map[string]model.CountryProfile
		weights    map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		emitting, err = asset.LoadEmitting(gctx, cfg.Data.AssetFiles, cfg.Engine.TrendClamp, snap)
		return err
	})
	g.Go(func() error {
		var err error
		clean, err = asset.LoadClean(gctx, cfg.Data.CleanAssetFiles, snap)
		return err
	})
	g.Go(func() error {
		var err error
		fossilOps, err = asset.LoadFossilOps(gctx, cfg.Data.FossilOpsFiles, snap)
		return err
	})
	g.Go(func() error {
		var err error
		dcs, err = asset.LoadDataCenters(cfg.Data.DataCenterFile)
		return err
	})
	g.Go(func() error {
		var err error
		zones, err = zone.Load(gctx, cfg.Data.ZoneDir, snap)
		return err
	})
	g.Go(func() error {
		var err error
		boundaries, err = zone.LoadBoundaries(cfg.Data.BoundaryFile)
		return err
	})
	g.Go(func() error {
		var err error
		profiles, err = country.LoadProfiles(cfg.Data.CountryMixFile)
		return err
	})
	g.Go(func() error {
		var err error
		weights, err = country.LoadFuelWeights(cfg.Data.FuelWeightsFile)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	trends := trend.Countries(emitting)

	emittingTree, err := buildTree(emitting)
	if err != nil {
		return nil, err
	}
	cleanTree, err := buildTree(clean)
	if err != nil {
		return nil, err
	}
	fossilTree, err := buildFossilTree(fossilOps)
	if err != nil {
		return nil, err
	}
	dcTree, err := buildDCTree(dcs)
	if err != nil {
		return nil, err
	}
	zoneTree, zoneCI, err := buildZoneIndex(zones)
	if err != nil {
		return nil, err
	}

	artifact, err := inference.LoadArtifact(cfg.Data.ModelFile)
	if err != nil {
		zap.L().Warn("model artifact unavailable, predictions fall back to baselines",
			zap.Error(err))
		artifact = nil
	}

	var live inference.LiveSource
	if cfg.Live.Enabled {
		live = ukgrid.NewClient(cfg.Live.BaseURL, cfg.Live.Timeout())
	}
	chain := inference.NewChain(cfg.Engine.CleanZoneCI, cfg.Live.Countries, live)

	resolver := fusion.New(fusion.Data{
		Emitting:     emitting,
		Clean:        clean,
		FossilOps:    fossilOps,
		DataCenters:  dcs,
		EmittingTree: emittingTree,
		CleanTree:    cleanTree,
		FossilTree:   fossilTree,
		DCTree:       dcTree,
		Zones:        zones,
		ZoneTree:     zoneTree,
		ZoneCI:       zoneCI,
		Boundaries:   boundaries,
		Profiles:     profiles,
		FuelWeights:  weights,
		Trends:       trends,
	}, fusion.Params{
		RadiusKm:           cfg.Engine.RadiusKm,
		ZoneNeighborK:      cfg.Engine.ZoneNeighborK,
		ZoneNeighborMaxKm:  cfg.Engine.ZoneNeighborMaxKm,
		ZoneCapacityMaxKm:  cfg.Engine.ZoneCapacityMaxKm,
		PolygonFallbackDeg: cfg.Engine.PolygonFallbackDeg,
	})

	e := &Engine{
		cfg:      cfg,
		resolver: resolver,
		artifact: artifact,
		chain:    chain,
		trends:   trends,
		counts: map[string]int{
			"assets":         emitting.Len(),
			"clean_assets":   clean.Len(),
			"fossil_ops":     fossilOps.Len(),
			"data_centers":   len(dcs),
			"zones":          len(zones),
			"zone_polygons":  boundaries.Len(),
			"countries":      len(profiles),
			"fuel_weights":   len(weights),
			"country_trends": len(trends),
		},
		loadedAt: time.Now(),
	}
	zap.L().Info("engine loaded",
		zap.Int("assets", emitting.Len()),
		zap.Int("clean_assets", clean.Len()),
		zap.Int("fossil_ops", fossilOps.Len()),
		zap.Int("data_centers", len(dcs)),
		zap.Int("zones", len(zones)),
		zap.Int("countries", len(profiles)),
		zap.Bool("model", artifact != nil))
	return e, nil
}

// Reload builds a fresh Engine from the same configuration.
func (e *Engine) Reload(ctx context.Context) (*Engine, error) {
	return Load(ctx, e.cfg)
}

// Health reports per-layer record counts.
func (e *Engine) Health() map[string]int {
	return e.counts
}

// ModelLoaded reports whether a trained artifact backs predictions.
func (e *Engine) ModelLoaded() bool { return e.artifact != nil }

func buildTree(t *model.AssetTable) (*spatial.Tree, error) {
	lats := make([]float64, t.Len())
	lons := make([]float64, t.Len())
	for i, a := range t.Assets {
		lats[i] = a.Lat
		lons[i] = a.Lon
	}
	tree, err := spatial.NewTree(lats, lons)
	return tree, eris.Wrap(err, "engine: asset index")
}

func buildFossilTree(t *model.FossilOpTable) (*spatial.Tree, error) {
	lats := make([]float64, t.Len())
	lons := make([]float64, t.Len())
	for i, op := range t.Ops {
		lats[i] = op.Lat
		lons[i] = op.Lon
	}
	tree, err := spatial.NewTree(lats, lons)
	return tree, eris.Wrap(err, "engine: fossil ops index")
}

func buildDCTree(dcs []model.DataCenter) (*spatial.Tree, error) {
	lats := make([]float64, len(dcs))
	lons := make([]float64, len(dcs))
	for i, dc := range dcs {
		lats[i] = dc.Lat
		lons[i] = dc.Lon
	}
	tree, err := spatial.NewTree(lats, lons)
	return tree, eris.Wrap(err, "engine: data center index")
}

func buildZoneIndex(zones []model.Zone) (*spatial.Tree, map[string]float64, error) {
	lats := make([]float64, len(zones))
	lons := make([]float64, len(zones))
	zoneCI := make(map[string]float64, len(zones))
	for i, z := range zones {
		lats[i] = z.CenterLat
		lons[i] = z.CenterLon
		zoneCI[z.Key] = z.EstimatedCI
	}
	tree, err := spatial.NewTree(lats, lons)
	return tree, zoneCI, eris.Wrap(err, "engine: zone index")
}

func validateCoords(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return eris.Errorf("engine: coordinates out of range (%f, %f)", lat, lon)
	}
	return nil
}
