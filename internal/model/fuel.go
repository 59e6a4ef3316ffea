package model

// DefaultCI is the world-average carbon intensity (gCO2/kWh) used when no
// country, zone, or asset context can be resolved for a query point.
const DefaultCI = 475.0

// zoneFuelEF maps generation-mix fuel names to default emission factors in
// gCO2/kWh, used to estimate a zone's carbon intensity from its mix ratios.
var zoneFuelEF = map[string]float64{
	"coal":              995,
	"gas":               490,
	"oil":               816,
	"biomass":           230,
	"nuclear":           29,
	"hydro":             26,
	"wind":              26,
	"solar":             48,
	"geothermal":        38,
	"hydro discharge":   26,
	"battery discharge": 200,
	"unknown":           DefaultCI,
}

// ZoneFuelEF returns the default emission factor for a generation-mix fuel
// name, falling back to the world average for unrecognized fuels.
func ZoneFuelEF(fuel string) float64 {
	if ef, ok := zoneFuelEF[fuel]; ok {
		return ef
	}
	return DefaultCI
}

// Installed-capacity fuel groupings for zone capacity fractions.
var (
	cleanCapacityFuels  = map[string]bool{"solar": true, "wind": true, "hydro": true, "nuclear": true, "geothermal": true, "hydro storage": true}
	fossilCapacityFuels = map[string]bool{"coal": true, "gas": true, "oil": true}
)

// IsCleanCapacityFuel reports whether an installed-capacity fuel name
// counts toward a zone's clean capacity fraction.
func IsCleanCapacityFuel(fuel string) bool { return cleanCapacityFuels[fuel] }

// IsFossilCapacityFuel reports whether an installed-capacity fuel name
// counts toward a zone's fossil capacity fraction.
func IsFossilCapacityFuel(fuel string) bool { return fossilCapacityFuels[fuel] }

// GreenScore maps a carbon intensity to a 0-100 score (higher is cleaner).
func GreenScore(ci float64) float64 {
	score := 100.0 - ci/9.0
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Grade maps a green score to a letter grade.
func Grade(score float64) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	case score >= 40:
		return "D"
	case score >= 25:
		return "E"
	default:
		return "F"
	}
}
