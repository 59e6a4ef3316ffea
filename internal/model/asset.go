// Package model defines the shared domain types for the carbon engine:
// point assets, grid zones, country profiles, trend records, and the
// request/response shapes consumed by the serving layer.
package model

// FuelCategory is the closed fuel enumeration every raw source label is
// mapped into. Unrecognized labels map to FuelFossil (conservative).
type FuelCategory string

const (
	FuelCoal       FuelCategory = "coal"
	FuelNaturalGas FuelCategory = "natural_gas"
	FuelPetroleum  FuelCategory = "petroleum"
	FuelFossil     FuelCategory = "fossil"
	FuelSolar      FuelCategory = "solar"
	FuelWind       FuelCategory = "wind"
	FuelHydro      FuelCategory = "hydroelectricity"
	FuelNuclear    FuelCategory = "nuclear"
	FuelGeothermal FuelCategory = "geothermal"
)

// IsFossil reports whether the category counts toward the fossil share of
// a local fuel mix.
func (f FuelCategory) IsFossil() bool {
	switch f {
	case FuelCoal, FuelNaturalGas, FuelPetroleum, FuelFossil:
		return true
	}
	return false
}

// IsClean reports whether the category is a zero-emission generation source.
func (f FuelCategory) IsClean() bool {
	switch f {
	case FuelSolar, FuelWind, FuelHydro, FuelNuclear, FuelGeothermal:
		return true
	}
	return false
}

// Asset is one physical emitter or generator, reduced to a single row for
// the most recent reporting year. Immutable after load except for TrendB,
// which the trend estimator attaches before the spatial index is built.
type Asset struct {
	ID             string
	Fuel           FuelCategory
	RawType        string
	Country        string // ISO3
	Lat            float64
	Lon            float64
	CapacityMW     float64 // 0 when unknown
	EmissionsT     float64 // annual tonnes CO2e
	EmissionFactor float64 // t CO2e per MWh, 0 when unknown
	ActivityMWh    float64 // annual generation, 0 when unknown
	CapacityFactor float64 // 0..1, 0 when unknown
	Series         map[int]float64 // year -> annual emissions, all years seen
	TrendB         float64         // fractional change per year, clamped
}

// AssetTable is an immutable collection of deduplicated assets for one
// data layer, plus the load-quality bookkeeping.
type AssetTable struct {
	Assets       []Asset
	Year         int // most recent reporting year in the sources
	BaselineYear int // last complete year (Year - 1); trend fits stop here
	Skipped      int // malformed rows dropped during load
}

// Len returns the number of assets, tolerating a nil table.
func (t *AssetTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Assets)
}

// FossilOp is one non-power fossil operation (coal mining, oil refining,
// oil and gas production) reduced to a single row for the latest reporting
// year of its source.
type FossilOp struct {
	ID         string
	Sector     string
	Country    string // ISO3
	Lat        float64
	Lon        float64
	EmissionsT float64 // annual tonnes CO2e
	CapacityMW float64 // 0 when unknown
}

// FossilOpTable is an immutable collection of deduplicated fossil
// operations across all configured sectors.
type FossilOpTable struct {
	Ops     []FossilOp
	Year    int // most recent reporting year across the sources
	Skipped int // malformed rows dropped during load
}

// Len returns the number of operations, tolerating a nil table.
func (t *FossilOpTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Ops)
}

// DataCenter is a known data-center site from the registry file.
type DataCenter struct {
	ID       string
	Provider string
	Zone     string
	Lat      float64
	Lon      float64
}
