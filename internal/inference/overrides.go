package inference

import (
	"context"

	"go.uber.org/zap"

	"github.com/gridsync/carbon-engine/internal/model"
)

// LiveSource is a real-time grid intensity feed, queried with a bounded
// timeout. Failures trigger fallback to the model value, never an error
// surfaced to the caller.
type LiveSource interface {
	Current(ctx context.Context) (*model.LiveReading, error)
}

// Query is the resolved context an override rule decides on.
type Query struct {
	CountryISO3  string
	ZoneKey      string
	ZoneResolved bool    // a zone polygon (or fallback) matched the point
	ZoneCI       float64 // zone baseline intensity when resolved
	ModelCI      float64 // raw model prediction, valid when ModelOK
	ModelOK      bool
	BaseCI       float64 // zone/country/default baseline
	LiveDisabled bool
}

// Outcome is the final intensity selection with its provenance.
type Outcome struct {
	Intensity        float64
	Override         string // rule name, empty for a plain model prediction
	Live             *model.LiveReading
	LiveUnreachable  bool
	ModelUnavailable bool
}

// Rule is one (predicate, resolver) pair in the override chain. Applies
// gates the rule; Resolve may still decline (live feed down) and the
// chain moves on.
type Rule struct {
	Name    string
	Applies func(q Query) bool
	Resolve func(ctx context.Context, q Query, out *Outcome) bool
}

// Chain is the ordered override policy evaluated top-down: the first rule
// that applies and resolves wins. The chain always terminates with the
// model prediction, or the baseline when no model is loaded.
type Chain struct {
	rules []Rule
}

// NewChain builds the standard policy: clean-zone bypass first, then the
// live feed for designated countries, then the model. The clean-zone rule
// exists because for hydro/nuclear/wind dominated zones the zone power mix
// is the grid truth and local plant features only add noise.
func NewChain(cleanZoneCI float64, liveCountries []string, live LiveSource) *Chain {
	liveSet := make(map[string]bool, len(liveCountries))
	for _, iso3 := range liveCountries {
		liveSet[iso3] = true
	}

	rules := []Rule{
		{
			Name: "clean_zone",
			Applies: func(q Query) bool {
				return q.ZoneResolved && q.ZoneCI < cleanZoneCI
			},
			Resolve: func(_ context.Context, q Query, out *Outcome) bool {
				out.Intensity = q.ZoneCI
				return true
			},
		},
	}
	if live != nil {
		rules = append(rules, Rule{
			Name: "live_feed",
			Applies: func(q Query) bool {
				return !q.LiveDisabled && liveSet[q.CountryISO3]
			},
			Resolve: func(ctx context.Context, q Query, out *Outcome) bool {
				reading, err := live.Current(ctx)
				if err != nil || reading == nil {
					zap.L().Debug("live feed unavailable", zap.Error(err))
					out.LiveUnreachable = true
					return false
				}
				out.Intensity = reading.Forecast
				out.Live = reading
				return true
			},
		})
	}
	return &Chain{rules: rules}
}

// Resolve evaluates the chain for one query.
func (c *Chain) Resolve(ctx context.Context, q Query) Outcome {
	var out Outcome
	for _, rule := range c.rules {
		if !rule.Applies(q) {
			continue
		}
		if rule.Resolve(ctx, q, &out) {
			out.Override = rule.Name
			return out
		}
	}
	if q.ModelOK {
		out.Intensity = q.ModelCI
		return out
	}
	out.Intensity = q.BaseCI
	out.ModelUnavailable = true
	return out
}
