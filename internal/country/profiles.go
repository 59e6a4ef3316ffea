// Package country loads per-country energy-mix baselines and per-fuel
// carbon-intensity weights.
package country

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridsync/carbon-engine/internal/model"
)

// profileFile is the per-country JSON record shape.
type profileFile struct {
	CountryName     string   `json:"country_name"`
	CarbonIntensity *float64 `json:"carbon_intensity"`
	TotalTWh        float64  `json:"total_TWh"`
	FossilTWh       float64  `json:"fossil_TWh"`
	CoalTWh         float64  `json:"coal_TWh"`
	GasTWh          float64  `json:"gas_TWh"`
	NuclearTWh      float64  `json:"nuclear_TWh"`
	RenewablesTWh   float64  `json:"renewables_TWh"`
}

// LoadProfiles reads the country energy-mix JSON keyed by ISO3 code.
// Countries without a reported carbon intensity are kept for their mix
// fractions; their CI is zero and callers fall back to the world average.
func LoadProfiles(path string) (map[string]model.CountryProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "country: read %s", path)
	}
	var byISO map[string]profileFile
	if err := json.Unmarshal(raw, &byISO); err != nil {
		return nil, eris.Wrapf(err, "country: decode %s", path)
	}

	profiles := make(map[string]model.CountryProfile, len(byISO))
	for iso3, p := range byISO {
		prof := model.CountryProfile{
			ISO3:          iso3,
			Name:          p.CountryName,
			TotalTWh:      p.TotalTWh,
			FossilTWh:     p.FossilTWh,
			CoalTWh:       p.CoalTWh,
			GasTWh:        p.GasTWh,
			NuclearTWh:    p.NuclearTWh,
			RenewablesTWh: p.RenewablesTWh,
		}
		if p.CarbonIntensity != nil {
			prof.CI = *p.CarbonIntensity
		}
		profiles[iso3] = prof
	}
	zap.L().Info("country profiles loaded", zap.Int("count", len(profiles)))
	return profiles, nil
}

// LoadFuelWeights reads the per-fuel gCO2/kWh weights JSON.
func LoadFuelWeights(path string) (map[string]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "country: read %s", path)
	}
	var weights map[string]float64
	if err := json.Unmarshal(raw, &weights); err != nil {
		return nil, eris.Wrapf(err, "country: decode %s", path)
	}
	return weights, nil
}
