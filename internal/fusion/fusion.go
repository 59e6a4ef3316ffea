// Package fusion resolves a query point against every loaded data layer
// (country profiles, point assets, zone polygons) and assembles the model
// feature vector. The single-point and batch paths share one per-point
// assembly function over a pre-fetched query result, so the two can never
// diverge.
package fusion

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gridsync/carbon-engine/internal/model"
	"github.com/gridsync/carbon-engine/internal/spatial"
)

// Params are the spatial and temporal tuning constants.
type Params struct {
	RadiusKm           float64
	ZoneNeighborK      int
	ZoneNeighborMaxKm  float64
	ZoneCapacityMaxKm  float64
	PolygonFallbackDeg float64
}

// Data is the immutable view over all loaded layers. Any layer may be
// absent (nil table, empty tree); resolution degrades to defaults.
type Data struct {
	Emitting     *model.AssetTable
	Clean        *model.AssetTable
	FossilOps    *model.FossilOpTable
	DataCenters  []model.DataCenter
	EmittingTree *spatial.Tree
	CleanTree    *spatial.Tree
	FossilTree   *spatial.Tree
	DCTree       *spatial.Tree
	Zones        []model.Zone
	ZoneTree     *spatial.Tree // over zone centroids, indexes into Zones
	ZoneCI       map[string]float64
	Boundaries   *spatial.PolygonIndex
	Profiles     map[string]model.CountryProfile
	FuelWeights  map[string]float64
	Trends       map[string]model.TrendRecord
}

// Resolver answers feature-fusion queries against a fixed data snapshot.
// Safe for concurrent use; queries never mutate shared state.
type Resolver struct {
	d        Data
	p        Params
	worldAvg float64
}

func New(d Data, p Params) *Resolver {
	worldAvg := model.DefaultCI
	if v, ok := d.FuelWeights["world_average"]; ok {
		worldAvg = v
	}
	return &Resolver{d: d, p: p, worldAvg: worldAvg}
}

// WorldAverage returns the global default intensity used when no layer
// resolves.
func (r *Resolver) WorldAverage() float64 { return r.worldAvg }

// BaselineYear returns the last complete reporting year of the emitting
// layer, the t=0 reference for all projections.
func (r *Resolver) BaselineYear() int {
	if r.d.Emitting == nil {
		return 0
	}
	return r.d.Emitting.BaselineYear
}

// QueryResult carries every spatial-index answer one point needs. The
// batch evaluator fetches these for the whole array up front.
type QueryResult struct {
	Local          []spatial.Neighbor // emitting assets within radius
	CleanLocal     []spatial.Neighbor // clean assets within radius
	FossilInRadius int                // fossil operations within radius
	NearestAsset   spatial.Neighbor
	HasNearest     bool
	NearestDC      spatial.Neighbor
	HasNearestDC   bool
	ZoneKey        string
	ZoneCI         float64
	ZoneResolved   bool
	NearestZone    spatial.Neighbor
	HasNearestZone bool
	ZoneNeighbors  []spatial.Neighbor
}

// Query runs all index lookups for one point. A non-positive radiusKm
// uses the configured default.
func (r *Resolver) Query(lat, lon, radiusKm float64) QueryResult {
	if radiusKm <= 0 {
		radiusKm = r.p.RadiusKm
	}
	var qr QueryResult
	if r.d.EmittingTree != nil {
		qr.Local = r.d.EmittingTree.Within(lat, lon, radiusKm)
		qr.NearestAsset, qr.HasNearest = r.d.EmittingTree.Nearest(lat, lon)
	}
	if r.d.CleanTree != nil {
		qr.CleanLocal = r.d.CleanTree.Within(lat, lon, radiusKm)
	}
	if r.d.FossilTree != nil {
		qr.FossilInRadius = len(r.d.FossilTree.Within(lat, lon, radiusKm))
	}
	if r.d.DCTree != nil {
		qr.NearestDC, qr.HasNearestDC = r.d.DCTree.Nearest(lat, lon)
	}
	qr.ZoneKey, qr.ZoneCI, qr.ZoneResolved = r.zoneLookup(lat, lon)
	if r.d.ZoneTree != nil {
		qr.ZoneNeighbors = r.d.ZoneTree.KNearest(lat, lon, r.p.ZoneNeighborK)
		if len(qr.ZoneNeighbors) > 0 {
			qr.NearestZone = qr.ZoneNeighbors[0]
			qr.HasNearestZone = true
		}
	}
	return qr
}

// QueryBatch fetches query results for a whole coordinate array, fanning
// out across CPUs. Results align with the input slices.
func (r *Resolver) QueryBatch(lats, lons []float64) []QueryResult {
	n := len(lats)
	out := make([]QueryResult, n)
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := range out {
			out[i] = r.Query(lats[i], lons[i], 0)
		}
		return out
	}

	var g errgroup.Group
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		start, end := start, end
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = r.Query(lats[i], lons[i], 0)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// zoneLookup resolves a point to a zone with a usable mix-derived
// intensity: polygon containment first, then the bounded nearest-boundary
// fallback for coastline points that narrowly miss every polygon.
func (r *Resolver) zoneLookup(lat, lon float64) (string, float64, bool) {
	if r.d.Boundaries == nil || len(r.d.ZoneCI) == 0 {
		return "", 0, false
	}
	if key, ok := r.d.Boundaries.Contains(lat, lon); ok {
		if ci, has := r.d.ZoneCI[key]; has {
			return key, ci, true
		}
	}
	if key, ok := r.d.Boundaries.NearestWithin(lat, lon, r.p.PolygonFallbackDeg); ok {
		if ci, has := r.d.ZoneCI[key]; has {
			return key, ci, true
		}
	}
	return "", 0, false
}

// Resolution is the fused per-point context: baseline, features, and the
// response metadata derived alongside them.
type Resolution struct {
	CountryISO3  string
	CountryName  string
	BaseCI       float64
	ZoneKey      string
	ZoneResolved bool
	ZoneCI       float64 // zone baseline when resolved, else 0
	TrendB       float64
	Features     map[string]float64
	Local        model.LocalContext
	Gap          bool // no country and no zone resolved
}

// Resolve assembles the feature vector and context for one point from its
// pre-fetched query result. targetYear zero means no projection; otherwise
// per-asset emissions and generation scale by the fitted trend before
// aggregation, and assets whose projected output reaches zero are retired.
func (r *Resolver) Resolve(lat, lon float64, targetYear int, qr QueryResult) Resolution {
	res := Resolution{
		CountryISO3:  "Unknown",
		CountryName:  "Unknown",
		ZoneKey:      qr.ZoneKey,
		ZoneResolved: qr.ZoneResolved,
	}

	// Country from the nearest asset's ISO3, cross-referenced to profiles.
	var prof model.CountryProfile
	haveProfile := false
	if qr.HasNearest && r.d.Emitting != nil {
		iso3 := r.d.Emitting.Assets[qr.NearestAsset.Index].Country
		if p, ok := r.d.Profiles[iso3]; ok {
			prof = p
			haveProfile = true
			res.CountryISO3 = iso3
			res.CountryName = p.Name
			if res.CountryName == "" {
				res.CountryName = iso3
			}
		}
	}

	// Baseline: zone polygon intensity, then country, then world average.
	switch {
	case qr.ZoneResolved:
		res.BaseCI = qr.ZoneCI
	case haveProfile && prof.CI > 0:
		res.BaseCI = prof.CI
	default:
		res.BaseCI = r.worldAvg
	}
	res.Gap = !qr.ZoneResolved && !haveProfile

	// Country mix fractions, with agnostic 50/50 defaults.
	countryFossil, countryClean := 0.5, 0.5
	var countryCoal, countryGas, countryNuclear, countryRenew float64
	if haveProfile {
		countryFossil = prof.FossilFrac()
		countryClean = prof.CleanFrac()
		countryCoal = prof.CoalFrac()
		countryGas = prof.GasFrac()
		countryNuclear = prof.NuclearFrac()
		countryRenew = prof.RenewFrac()
	}

	loc := r.localFeatures(targetYear, qr)
	res.Local = loc.context
	res.Local.FossilOpsInRadius = qr.FossilInRadius
	if qr.HasNearestDC {
		res.Local.NearestDCKm = math.Round(qr.NearestDC.DistKm*10) / 10
		res.Local.NearestDCID = r.d.DataCenters[qr.NearestDC.Index].ID
	}
	res.TrendB = loc.trendB
	if res.TrendB == 0 && haveProfile {
		if t, ok := r.d.Trends[res.CountryISO3]; ok {
			res.TrendB = t.PctChangePerYear / 100
		}
	}

	zoneCIVal, zoneIDW, zoneCleanFrac, zoneFossilFrac, zoneCoalMW := r.zoneFeatures(qr)
	res.ZoneCI = zoneCIVal

	countryTrendPct := 0.0
	if t, ok := r.d.Trends[res.CountryISO3]; ok {
		countryTrendPct = t.PctChangePerYear
	}

	res.Features = map[string]float64{
		"country_ci":               res.BaseCI,
		"emissions_per_capacity":   loc.emissionsPerCapacity,
		"local_pct_coal":           loc.pctCoal,
		"local_pct_clean":          loc.pctClean,
		"mean_emissions_per_plant": loc.meanEmissions,
		"abs_lat":                  math.Abs(lat),
		"idw_weighted_ci":          loc.idwCI,
		"country_ci_sq":            res.BaseCI * res.BaseCI / 1000,
		"zone_ci":                  zoneCIVal,
		"zone_idw_ci":              zoneIDW,
		"sqrt_zone_ci":             math.Sqrt(math.Max(zoneCIVal, 0)),
		"zone_x_country":           zoneCIVal * res.BaseCI / 1000,
		"country_fossil_frac":      countryFossil,
		"country_clean_frac":       countryClean,
		"country_coal_frac":        countryCoal,
		"country_gas_frac":         countryGas,
		"country_nuclear_frac":     countryNuclear,
		"country_renew_frac":       countryRenew,
		"grid_ci_est":              loc.emissionsPerCapacity * countryFossil,
		"local_ef_weighted":        loc.efWeighted,
		"local_generation_gwh":     loc.generationGWh,
		"local_mean_cf":            loc.meanCF,
		"zone_clean_cap_frac":      zoneCleanFrac,
		"zone_fossil_cap_frac":     zoneFossilFrac,
		"zone_coal_cap_mw":         zoneCoalMW,
		"country_trend_pct":        countryTrendPct,
		"local_trend_x_ci":         res.TrendB * res.BaseCI,
	}
	return res
}

// localAgg is the radius-neighborhood aggregation over emitting and clean
// assets.
type localAgg struct {
	emissionsPerCapacity float64
	pctCoal              float64
	pctClean             float64
	meanEmissions        float64
	idwCI                float64
	efWeighted           float64
	generationGWh        float64
	meanCF               float64
	trendB               float64
	context              model.LocalContext
}

func (r *Resolver) localFeatures(targetYear int, qr QueryResult) localAgg {
	var agg localAgg
	projecting := targetYear > 0
	dt := 0.0
	if projecting {
		dt = float64(targetYear - r.BaselineYear())
	}

	fuelMix := make(map[model.FuelCategory]float64)
	var cleanCapSum float64
	for _, n := range qr.CleanLocal {
		a := r.d.Clean.Assets[n.Index]
		cleanCapSum += a.CapacityMW
		fuelMix[a.Fuel] += a.CapacityMW
	}
	agg.context.CleanPlantsInRadius = len(qr.CleanLocal)
	agg.context.PlantsInRadius = len(qr.Local)

	if len(qr.Local) == 0 {
		// No emitting assets nearby. Clean assets alone still define the
		// local mix and a very low IDW intensity.
		if len(qr.CleanLocal) > 0 {
			agg.pctClean = 1
			agg.idwCI = r.cleanIDW(qr.CleanLocal)
			agg.context.RenewableCapacityMW = cleanCapSum
			agg.context.RenewableRatio = 1
			agg.context.FuelMixMW = fuelMix
		}
		return agg
	}

	var (
		capSum, emiSum       float64
		coalCount, fossilCnt int
		activeCount          int
		wSum, wCISum         float64
		efNum, actSum        float64
		cfSum                float64
		cfCount              int
		capTSum, trendNum    float64
		renewCap, fossilCap  float64
	)
	for _, n := range qr.Local {
		a := r.d.Emitting.Assets[n.Index]
		scale := 1.0
		if projecting {
			scale = math.Max(0, 1+a.TrendB*dt)
		}
		retired := projecting && scale <= 0

		capSum += a.CapacityMW
		emiSum += a.EmissionsT * scale

		if !retired {
			activeCount++
			if a.Fuel == model.FuelCoal {
				coalCount++
			}
			if a.Fuel.IsFossil() {
				fossilCnt++
			}
		}

		// IDW weight: capacity over squared distance, shifted by the
		// projected output scale so declining assets shed influence.
		d := math.Max(n.DistKm, 1)
		w := a.CapacityMW / (d * d)
		if projecting {
			w = a.CapacityMW * scale / (d * d)
		}
		wSum += w
		wCISum += w * r.assetCI(a.Fuel)

		act := a.ActivityMWh * scale
		if a.EmissionFactor > 0 && act > 0 {
			efNum += a.EmissionFactor * act
			actSum += act
		}
		if a.CapacityFactor > 0 {
			cfSum += a.CapacityFactor
			cfCount++
		}

		capT := a.CapacityMW
		if capT <= 0 {
			capT = 1
		}
		capTSum += capT
		trendNum += a.TrendB * capT

		if a.Fuel.IsClean() {
			renewCap += a.CapacityMW
		} else {
			fossilCap += a.CapacityMW
		}
		fuelMix[a.Fuel] += a.CapacityMW
	}

	nTotal := activeCount + len(qr.CleanLocal)
	if !projecting {
		nTotal = len(qr.Local) + len(qr.CleanLocal)
	}
	if nTotal > 0 {
		agg.pctCoal = float64(coalCount) / float64(nTotal)
		agg.pctClean = math.Max(0, 1-float64(fossilCnt)/float64(nTotal))
	}

	if totalCap := capSum + cleanCapSum; totalCap > 0 {
		agg.emissionsPerCapacity = emiSum / totalCap
	}
	agg.meanEmissions = emiSum / float64(len(qr.Local))

	// Fold the clean assets into the IDW so clean capacity dilutes the
	// intensity signal.
	for _, n := range qr.CleanLocal {
		a := r.d.Clean.Assets[n.Index]
		d := math.Max(n.DistKm, 1)
		w := a.CapacityMW / (d * d)
		wSum += w
		wCISum += w * r.cleanAssetCI(a.Fuel)
	}
	if wSum > 0 {
		agg.idwCI = wCISum / wSum
	}

	if actSum > 0 {
		agg.efWeighted = efNum / actSum * 1000
		agg.generationGWh = actSum / 1000
	}
	if cfCount > 0 {
		agg.meanCF = cfSum / float64(cfCount)
	}
	agg.trendB = trendNum / math.Max(capTSum, 1)

	agg.context.RenewableCapacityMW = renewCap + cleanCapSum
	agg.context.FossilCapacityMW = fossilCap
	agg.context.RenewableRatio = agg.context.RenewableCapacityMW /
		math.Max(1, agg.context.RenewableCapacityMW+fossilCap)
	agg.context.FuelMixMW = fuelMix
	return agg
}

func (r *Resolver) cleanIDW(neighbors []spatial.Neighbor) float64 {
	var wSum, wCISum float64
	for _, n := range neighbors {
		a := r.d.Clean.Assets[n.Index]
		d := math.Max(n.DistKm, 1)
		w := a.CapacityMW / (d * d)
		wSum += w
		wCISum += w * r.cleanAssetCI(a.Fuel)
	}
	if wSum == 0 {
		return 0
	}
	return wCISum / wSum
}

func (r *Resolver) assetCI(f model.FuelCategory) float64 {
	if v, ok := r.d.FuelWeights[string(f)]; ok {
		return v
	}
	return r.worldAvg
}

// cleanAssetCI defaults to zero: a clean plant with no tabulated factor
// contributes dilution, not the world average.
func (r *Resolver) cleanAssetCI(f model.FuelCategory) float64 {
	return r.d.FuelWeights[string(f)]
}

func (r *Resolver) zoneFeatures(qr QueryResult) (ciVal, idw, cleanFrac, fossilFrac, coalMW float64) {
	if qr.ZoneResolved {
		ciVal = qr.ZoneCI
	}
	if qr.HasNearestZone && qr.NearestZone.DistKm < r.p.ZoneCapacityMaxKm {
		z := r.d.Zones[qr.NearestZone.Index]
		if ciVal == 0 {
			ciVal = z.EstimatedCI
		}
		if z.HasCapacity {
			cleanFrac = z.CleanCapFrac
			fossilFrac = z.FossilCapFrac
			coalMW = z.CoalCapMW
		}
	}
	var wSum, wCISum float64
	for _, n := range qr.ZoneNeighbors {
		if n.DistKm > r.p.ZoneNeighborMaxKm {
			continue
		}
		d := math.Max(n.DistKm, 1)
		w := 1 / (d * d)
		wSum += w
		wCISum += w * r.d.Zones[n.Index].EstimatedCI
	}
	if wSum > 0 {
		idw = wCISum / wSum
	}
	return ciVal, idw, cleanFrac, fossilFrac, coalMW
}
