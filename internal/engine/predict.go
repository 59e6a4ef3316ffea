package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridsync/carbon-engine/internal/footprint"
	"github.com/gridsync/carbon-engine/internal/fusion"
	"github.com/gridsync/carbon-engine/internal/inference"
	"github.com/gridsync/carbon-engine/internal/model"
)

// PredictOptions tune a single-point query. Zero values mean defaults.
type PredictOptions struct {
	RadiusKm    float64
	TargetYear  int
	DisableLive bool
}

// Predict resolves one point into a full prediction. Per-query failures
// (no zone, no model, live feed down) degrade and are flagged in the
// response; only out-of-range coordinates return an error.
func (e *Engine) Predict(ctx context.Context, lat, lon float64, opts PredictOptions) (*model.Prediction, error) {
	if err := validateCoords(lat, lon); err != nil {
		return nil, err
	}

	qr := e.resolver.Query(lat, lon, opts.RadiusKm)
	res := e.resolver.Resolve(lat, lon, opts.TargetYear, qr)

	modelCI := 0.0
	modelOK := false
	if e.artifact != nil {
		modelCI = e.artifact.Score(e.artifact.Vector(res.Features))
		modelOK = true
	}

	out := e.chain.Resolve(ctx, inference.Query{
		CountryISO3:  res.CountryISO3,
		ZoneKey:      res.ZoneKey,
		ZoneResolved: res.ZoneResolved,
		ZoneCI:       res.ZoneCI,
		ModelCI:      modelCI,
		ModelOK:      modelOK,
		BaseCI:       res.BaseCI,
		LiveDisabled: opts.DisableLive,
	})

	radius := opts.RadiusKm
	if radius <= 0 {
		radius = e.cfg.Engine.RadiusKm
	}
	score := model.GreenScore(out.Intensity)
	pred := &model.Prediction{
		Intensity:   out.Intensity,
		GreenScore:  math.Round(score*10) / 10,
		Grade:       model.Grade(score),
		Country:     res.CountryName,
		CountryISO3: res.CountryISO3,
		Zone:        res.ZoneKey,
		BaseCI:      res.BaseCI,
		ModelCI:     modelCI,
		Override:    out.Override,
		Live:        out.Live,
		Local:       res.Local,
		Projection:  e.projection(res),
		RadiusKm:    radius,
		Flags: model.Flags{
			ResolutionGap:    res.Gap,
			ModelUnavailable: out.ModelUnavailable,
			LiveUnreachable:  out.LiveUnreachable,
		},
	}
	return pred, nil
}

func (e *Engine) projection(res fusion.Resolution) model.Projection {
	p := model.Projection{
		TrendB:           res.TrendB,
		PctChangePerYear: math.Round(res.TrendB*100*10000) / 10000,
		BaselineYear:     e.resolver.BaselineYear(),
	}
	if t, ok := e.trends[res.CountryISO3]; ok {
		p.RSquared = t.RSquared
		p.Label = t.Label
	}
	return p
}

// PredictFootprint sizes an IT load at a point and converts the predicted
// intensity into an annual footprint.
func (e *Engine) PredictFootprint(ctx context.Context, lat, lon, itLoadMW float64, provider string, opts PredictOptions) (*model.Footprint, error) {
	if itLoadMW <= 0 {
		return nil, eris.Errorf("engine: non-positive IT load %f MW", itLoadMW)
	}
	site, err := e.Predict(ctx, lat, lon, opts)
	if err != nil {
		return nil, err
	}
	fp := footprint.Compute(lat, lon, itLoadMW, provider, site)
	return &fp, nil
}

// SiteSpec is one candidate location in a multi-site comparison.
type SiteSpec struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	ITLoadMW float64 `json:"it_load_mw"`
	Provider string  `json:"provider"`
	RadiusKm float64 `json:"radius_km"`
}

// CompareSites footprints every candidate for the same workload and ranks
// them by annual tonnes, lowest first.
func (e *Engine) CompareSites(ctx context.Context, sites []SiteSpec) (*model.SiteComparison, error) {
	if len(sites) == 0 {
		return nil, eris.New("engine: no sites to compare")
	}
	out := make([]model.Footprint, 0, len(sites))
	for _, s := range sites {
		mw := s.ITLoadMW
		if mw <= 0 {
			mw = 10
		}
		fp, err := e.PredictFootprint(ctx, s.Lat, s.Lon, mw, s.Provider,
			PredictOptions{RadiusKm: s.RadiusKm})
		if err != nil {
			return nil, err
		}
		out = append(out, *fp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnnualTonnes < out[j].AnnualTonnes })

	cmp := &model.SiteComparison{Sites: out, Best: &out[0]}
	if len(out) >= 2 {
		cmp.SavingsVsWorst = out[len(out)-1].AnnualTonnes - out[0].AnnualTonnes
	}
	return cmp, nil
}

// PredictGridBatch evaluates a whole coordinate array: every index query
// is issued up front, features assemble per point from those results, and
// model scoring is a single matrix multiply. The live feed is never
// consulted on this path. Footprints assume itLoadMW per point with a
// latitude-estimated PUE.
func (e *Engine) PredictGridBatch(ctx context.Context, lats, lons []float64, itLoadMW float64, targetYear int) (*model.BatchResult, error) {
	if len(lats) != len(lons) {
		return nil, eris.New("engine: lat/lon length mismatch")
	}
	for i := range lats {
		if err := validateCoords(lats[i], lons[i]); err != nil {
			return nil, err
		}
	}
	if itLoadMW <= 0 {
		itLoadMW = 1
	}
	n := len(lats)
	start := time.Now()

	qrs := e.resolver.QueryBatch(lats, lons)
	tIndex := time.Now()

	intensity := make([]float64, n)
	trendB := make([]float64, n)
	rows := make([][]float64, 0, n)
	type zoneOverride struct {
		idx int
		ci  float64
	}
	var cleanZones []zoneOverride
	baselines := make([]float64, n)
	for i := range qrs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := e.resolver.Resolve(lats[i], lons[i], targetYear, qrs[i])
		trendB[i] = res.TrendB
		baselines[i] = res.BaseCI
		if res.ZoneResolved && res.ZoneCI < e.cfg.Engine.CleanZoneCI {
			cleanZones = append(cleanZones, zoneOverride{i, res.ZoneCI})
		}
		if e.artifact != nil {
			rows = append(rows, e.artifact.Vector(res.Features))
		}
	}
	tFeatures := time.Now()

	if e.artifact != nil {
		copy(intensity, e.artifact.ScoreBatch(rows))
	} else {
		copy(intensity, baselines)
	}
	// Clean zones bypass the model: the zone power mix is the grid truth.
	for _, o := range cleanZones {
		intensity[o.idx] = o.ci
	}

	fp := make([]float64, n)
	for i := range fp {
		pue := footprint.EstimatePUE(lats[i], "")
		fp[i] = footprint.AnnualTonnes(itLoadMW, pue, intensity[i])
	}
	tEnd := time.Now()

	timing := model.BatchTiming{
		IndexQuery:      tIndex.Sub(start),
		FeatureAssembly: tFeatures.Sub(tIndex),
		ModelPredict:    tEnd.Sub(tFeatures),
		Total:           tEnd.Sub(start),
	}
	zap.L().Info("batch prediction complete",
		zap.Int("points", n),
		zap.Duration("index_query", timing.IndexQuery),
		zap.Duration("feature_assembly", timing.FeatureAssembly),
		zap.Duration("model_predict", timing.ModelPredict),
		zap.Duration("total", timing.Total))

	return &model.BatchResult{
		Intensity: intensity,
		Footprint: fp,
		TrendB:    trendB,
		Timing:    timing,
	}, nil
}

// PredictCI is the minimal scalar interface: point and year to intensity.
// It runs through the batch path so projections behave identically.
func (e *Engine) PredictCI(ctx context.Context, lat, lon float64, year int) (float64, error) {
	res, err := e.PredictGridBatch(ctx, []float64{lat}, []float64{lon}, 1, year)
	if err != nil {
		return 0, err
	}
	return res.Intensity[0], nil
}
