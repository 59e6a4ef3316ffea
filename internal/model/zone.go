package model

// Zone is one grid zone: an electrically-interconnected region with its
// own generation mix, distinct from country boundaries.
type Zone struct {
	Key           string
	CenterLat     float64
	CenterLon     float64
	EstimatedCI   float64 // gCO2/kWh derived from generation-mix ratios
	CleanCapFrac  float64 // installed-capacity fraction, clean fuels
	FossilCapFrac float64
	CoalCapMW     float64
	HasCapacity   bool // capacity fractions are populated
}

// CountryProfile is the per-country baseline: carbon intensity plus the
// annual energy-mix totals used to derive fuel fractions.
type CountryProfile struct {
	ISO3          string
	Name          string
	CI            float64 // gCO2/kWh
	TotalTWh      float64
	FossilTWh     float64
	CoalTWh       float64
	GasTWh        float64
	NuclearTWh    float64
	RenewablesTWh float64
}

// FossilFrac returns the fossil share of annual generation.
func (p CountryProfile) FossilFrac() float64 { return p.frac(p.FossilTWh) }

// CleanFrac returns the combined renewable and nuclear share.
func (p CountryProfile) CleanFrac() float64 { return p.frac(p.RenewablesTWh + p.NuclearTWh) }

// CoalFrac returns the coal share of annual generation.
func (p CountryProfile) CoalFrac() float64 { return p.frac(p.CoalTWh) }

// GasFrac returns the gas share of annual generation.
func (p CountryProfile) GasFrac() float64 { return p.frac(p.GasTWh) }

// NuclearFrac returns the nuclear share of annual generation.
func (p CountryProfile) NuclearFrac() float64 { return p.frac(p.NuclearTWh) }

// RenewFrac returns the renewables share of annual generation.
func (p CountryProfile) RenewFrac() float64 { return p.frac(p.RenewablesTWh) }

func (p CountryProfile) frac(twh float64) float64 {
	if p.TotalTWh <= 0 {
		return 0
	}
	return twh / p.TotalTWh
}

// TrendRecord is a per-country emissions trend fitted over complete
// reporting years.
type TrendRecord struct {
	Years              []int
	EmissionsByYear    map[int]float64
	SlopeTonnesPerYear float64
	PctChangePerYear   float64
	RSquared           float64
	ProjectedNear      float64 // baseline + 3 years, floored at 0
	ProjectedFar       float64 // baseline + 6 years, floored at 0
	Label              string  // "improving", "stable", or "worsening"
}
