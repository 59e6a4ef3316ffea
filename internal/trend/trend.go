// Package trend fits linear emission trends over annual series for single
// assets and whole countries. The most recent reporting year is treated as
// preliminary and excluded from every fit.
package trend

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gridsync/carbon-engine/internal/model"
)

// AssetCoefficient fits emissions(t) = b*t + c over the complete years of
// an asset series, with t = year - baselineYear, and returns b normalized
// to a fractional change per year, clamped to [-clamp, clamp]. Fewer than
// two complete years yields zero. The normalization denominator is the
// intercept, floored so near-zero intercepts do not explode the ratio.
func AssetCoefficient(series map[int]float64, baselineYear int, clamp float64) float64 {
	var ts, es []float64
	for year, e := range series {
		if year <= baselineYear {
			ts = append(ts, float64(year-baselineYear))
			es = append(es, e)
		}
	}
	if len(ts) < 2 {
		return 0
	}
	c, b := stat.LinearRegression(ts, es, nil, false)
	if math.IsNaN(b) || math.IsNaN(c) {
		return 0
	}
	current := c
	if math.Abs(current) < 1 {
		current = math.Max(math.Abs(stat.Mean(es, nil)), 1)
	}
	bNorm := b / current
	if bNorm > clamp {
		bNorm = clamp
	} else if bNorm < -clamp {
		bNorm = -clamp
	}
	return bNorm
}

// Countries fits one emission trend per country by aggregating asset
// series, projecting two and five years past the latest reporting year.
func Countries(table *model.AssetTable) map[string]model.TrendRecord {
	byCountry := make(map[string]map[int]float64)
	for _, a := range table.Assets {
		m := byCountry[a.Country]
		if m == nil {
			m = make(map[int]float64)
			byCountry[a.Country] = m
		}
		for year, e := range a.Series {
			if year <= table.BaselineYear {
				m[year] += e
			}
		}
	}

	out := make(map[string]model.TrendRecord, len(byCountry))
	for iso3, annual := range byCountry {
		rec, ok := fitCountry(annual, table.Year)
		if ok {
			out[iso3] = rec
		}
	}
	return out
}

func fitCountry(annual map[int]float64, latest int) (model.TrendRecord, bool) {
	years := make([]int, 0, len(annual))
	for y := range annual {
		years = append(years, y)
	}
	sort.Ints(years)
	if len(years) < 2 {
		return model.TrendRecord{}, false
	}

	xs := make([]float64, len(years))
	ys := make([]float64, len(years))
	byYear := make(map[int]float64, len(years))
	for i, y := range years {
		xs[i] = float64(y)
		ys[i] = annual[y]
		byYear[y] = math.Round(annual[y])
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return model.TrendRecord{}, false
	}
	r2 := stat.RSquaredFrom(estimates(xs, intercept, slope), ys, nil)
	if math.IsNaN(r2) {
		r2 = 0
	}

	current := slope*float64(latest) + intercept
	pct := slope / math.Max(math.Abs(current), 1) * 100

	label := "stable"
	switch {
	case slope < -math.Abs(current)*0.01:
		label = "improving"
	case slope > math.Abs(current)*0.01:
		label = "worsening"
	}

	return model.TrendRecord{
		Years:              years,
		EmissionsByYear:    byYear,
		SlopeTonnesPerYear: math.Round(slope),
		PctChangePerYear:   math.Round(pct*100) / 100,
		RSquared:           math.Round(r2*1000) / 1000,
		ProjectedNear:      math.Max(0, math.Round(slope*float64(latest+2)+intercept)),
		ProjectedFar:       math.Max(0, math.Round(slope*float64(latest+5)+intercept)),
		Label:              label,
	}, true
}

func estimates(xs []float64, intercept, slope float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = slope*x + intercept
	}
	return out
}
