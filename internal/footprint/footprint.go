// Package footprint converts a predicted grid intensity into an annual
// carbon footprint for a sited IT load, with PUE estimation, everyday
// equivalences, and trend-scaled projections.
package footprint

import (
	"math"
	"strings"

	"github.com/gridsync/carbon-engine/internal/model"
)

// providerPUE holds published power-usage-effectiveness values from
// operator sustainability reports.
var providerPUE = map[string]float64{
	"gcp":    1.10,
	"azure":  1.18,
	"aws":    1.20,
	"meta":   1.10,
	"ovh":    1.30,
	"hlrs":   1.40,
	"itenos": 1.40,
}

// Equivalence factors.
const (
	carTonnesPerYear  = 4.6 // average car, EPA
	flightKgParisNYC  = 900 // one passenger, one way
	treeKgPerYear     = 22  // absorption of one tree
	homeTonnesPerYear = 7.5 // average EU home
)

// Footprint-per-MW normalization bounds for the green score: best is a
// cold clean grid (CI 28, PUE 1.1), worst a hot coal grid (CI 900,
// PUE 1.6).
const (
	bestTonnesPerMW  = 270.0
	worstTonnesPerMW = 12600.0
)

// EstimatePUE returns the PUE for a site: the published provider value
// when known, otherwise a latitude-based estimate. Colder regions allow
// more free-air cooling, so PUE falls with distance from the equator.
func EstimatePUE(lat float64, provider string) float64 {
	if pue, ok := providerPUE[strings.ToLower(provider)]; ok {
		return pue
	}
	const basePUE = 1.58 // global average, Uptime Institute 2023
	bonus := math.Min(0.20, math.Abs(lat)*0.003)
	pue := basePUE - bonus
	pue = math.Max(1.05, math.Min(1.80, pue))
	return math.Round(pue*100) / 100
}

// AnnualTonnes computes the yearly footprint in tonnes CO2:
// MW x PUE x gCO2/kWh x 8760 h, with the unit conversions folded into
// the 8.76 constant.
func AnnualTonnes(itLoadMW, pue, ci float64) float64 {
	return itLoadMW * pue * ci * 8.76
}

// Compute builds the full footprint response for a site prediction.
// Projections use the site's trend coefficient to scale intensity three
// and six years past the baseline.
func Compute(lat, lon, itLoadMW float64, provider string, site *model.Prediction) model.Footprint {
	pue := EstimatePUE(lat, provider)
	ci := site.Intensity
	annual := AnnualTonnes(itLoadMW, pue, ci)
	perMW := annual / math.Max(0.001, itLoadMW)

	score := 100 * (1 - (perMW-bestTonnesPerMW)/(worstTonnesPerMW-bestTonnesPerMW))
	score = math.Max(0, math.Min(100, math.Round(score*10)/10))

	fp := model.Footprint{
		Intensity:    ci,
		PUE:          pue,
		ITLoadMW:     itLoadMW,
		Provider:     provider,
		AnnualTonnes: math.Round(annual),
		TonnesPerMW:  math.Round(perMW),
		Equivalences: model.Equivalences{
			Cars:    int(math.Round(annual / carTonnesPerYear)),
			Flights: int(math.Round(annual * 1000 / flightKgParisNYC)),
			Trees:   int(math.Round(annual * 1000 / treeKgPerYear)),
			Homes:   int(math.Round(annual / homeTonnesPerYear)),
		},
		GreenScore: score,
		Grade:      model.Grade(score),
		Site:       site,
	}

	trendB := site.Projection.TrendB
	baseline := site.Projection.BaselineYear
	if trendB != 0 && baseline > 0 {
		fp.TonnesByYear = make(map[int]float64, 2)
		for _, target := range []int{baseline + 3, baseline + 6} {
			scale := math.Max(0, 1+trendB*float64(target-baseline))
			fp.TonnesByYear[target] = math.Round(AnnualTonnes(itLoadMW, pue, ci*scale))
		}
	}
	return fp
}
