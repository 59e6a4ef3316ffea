package model

import "time"

// LocalContext summarizes the infrastructure found inside the search
// radius of a query point.
type LocalContext struct {
	PlantsInRadius      int                      `json:"plants_in_radius"`
	CleanPlantsInRadius int                      `json:"clean_plants_in_radius"`
	FossilOpsInRadius   int                      `json:"fossil_operations_in_radius"`
	RenewableCapacityMW float64                  `json:"renewable_capacity_mw"`
	FossilCapacityMW    float64                  `json:"fossil_capacity_mw"`
	RenewableRatio      float64                  `json:"renewable_ratio"`
	NearestDCKm         float64                  `json:"nearest_dc_km,omitempty"`
	NearestDCID         string                   `json:"nearest_dc_id,omitempty"`
	FuelMixMW           map[FuelCategory]float64 `json:"fuel_mix_mw,omitempty"`
}

// Projection carries the temporal trend attached to a prediction.
type Projection struct {
	TrendB           float64         `json:"trend_b"` // fractional change per year
	PctChangePerYear float64         `json:"pct_change_per_year"`
	RSquared         float64         `json:"r_squared,omitempty"`
	Label            string          `json:"label,omitempty"`
	BaselineYear     int             `json:"baseline_year"`
	IntensityByYear  map[int]float64 `json:"intensity_by_year,omitempty"`
}

// LiveReading is one observation from a real-time grid intensity feed.
type LiveReading struct {
	Forecast float64 `json:"forecast"`
	Actual   float64 `json:"actual,omitempty"`
	Index    string  `json:"index,omitempty"`
}

// Flags records the per-query degradations absorbed while resolving.
type Flags struct {
	ResolutionGap    bool `json:"resolution_gap,omitempty"`
	ModelUnavailable bool `json:"model_unavailable,omitempty"`
	LiveUnreachable  bool `json:"live_unreachable,omitempty"`
}

// Prediction is the full single-point response.
type Prediction struct {
	Intensity   float64      `json:"intensity"` // gCO2/kWh, final value
	GreenScore  float64      `json:"green_score"`
	Grade       string       `json:"grade"`
	Country     string       `json:"country"`
	CountryISO3 string       `json:"country_iso3"`
	Zone        string       `json:"zone,omitempty"`
	BaseCI      float64      `json:"base_ci"`  // zone/country/default baseline
	ModelCI     float64      `json:"model_ci"` // raw model output before overrides
	Override    string       `json:"override,omitempty"`
	Live        *LiveReading `json:"live,omitempty"`
	Local       LocalContext `json:"local_context"`
	Projection  Projection   `json:"projection"`
	Flags       Flags        `json:"flags"`
	RadiusKm    float64      `json:"search_radius_km"`
}

// Equivalences expresses an annual footprint in everyday terms.
type Equivalences struct {
	Cars    int `json:"cars_equivalent"`
	Flights int `json:"flights_paris_nyc"`
	Trees   int `json:"trees_to_offset"`
	Homes   int `json:"eu_homes_equivalent"`
}

// Footprint is the annual carbon footprint response for a sited IT load.
type Footprint struct {
	Intensity     float64         `json:"intensity"`
	PUE           float64         `json:"pue"`
	ITLoadMW      float64         `json:"it_load_mw"`
	Provider      string          `json:"provider,omitempty"`
	AnnualTonnes  float64         `json:"annual_tonnes"`
	TonnesPerMW   float64         `json:"tonnes_per_mw"`
	Equivalences  Equivalences    `json:"equivalences"`
	TonnesByYear  map[int]float64 `json:"tonnes_by_year,omitempty"`
	GreenScore    float64         `json:"green_score"`
	Grade         string          `json:"grade"`
	Site          *Prediction     `json:"site,omitempty"`
}

// SiteComparison ranks candidate sites by annual footprint, lowest first.
type SiteComparison struct {
	Sites          []Footprint `json:"sites"`
	Best           *Footprint  `json:"best,omitempty"`
	SavingsVsWorst float64     `json:"savings_vs_worst"`
}

// BatchTiming is the per-phase breakdown of one batch evaluation.
type BatchTiming struct {
	IndexQuery      time.Duration `json:"index_query"`
	FeatureAssembly time.Duration `json:"feature_assembly"`
	ModelPredict    time.Duration `json:"model_predict"`
	Total           time.Duration `json:"total"`
}

// BatchResult holds the vectorized outputs for a coordinate array.
type BatchResult struct {
	Intensity []float64   `json:"intensity"` // gCO2/kWh per point
	Footprint []float64   `json:"footprint"` // t CO2/yr per MW of IT load
	TrendB    []float64   `json:"trend"`     // fractional change per year
	Timing    BatchTiming `json:"timing"`
}
