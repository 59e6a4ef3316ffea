package inference

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/gridsync/carbon-engine/internal/model"
)

type fakeLive struct {
	reading *model.LiveReading
	err     error
	calls   int
}

func (f *fakeLive) Current(ctx context.Context) (*model.LiveReading, error) {
	f.calls++
	return f.reading, f.err
}

func TestChainCleanZoneWins(t *testing.T) {
	live := &fakeLive{reading: &model.LiveReading{Forecast: 180}}
	c := NewChain(100, []string{"GBR"}, live)

	out := c.Resolve(context.Background(), Query{
		CountryISO3:  "GBR",
		ZoneResolved: true,
		ZoneCI:       26.6,
		ModelCI:      300,
		ModelOK:      true,
	})
	assert.Equal(t, "clean_zone", out.Override)
	assert.InDelta(t, 26.6, out.Intensity, 0.001)
	// The clean zone short-circuits before the live feed.
	assert.Zero(t, live.calls)
}

func TestChainCleanZoneThresholdExclusive(t *testing.T) {
	c := NewChain(100, nil, nil)
	out := c.Resolve(context.Background(), Query{
		ZoneResolved: true,
		ZoneCI:       100,
		ModelCI:      250,
		ModelOK:      true,
	})
	assert.Empty(t, out.Override)
	assert.InDelta(t, 250, out.Intensity, 0.001)
}

func TestChainLiveFeed(t *testing.T) {
	live := &fakeLive{reading: &model.LiveReading{Forecast: 180, Index: "moderate"}}
	c := NewChain(100, []string{"GBR"}, live)

	out := c.Resolve(context.Background(), Query{
		CountryISO3: "GBR",
		ModelCI:     300,
		ModelOK:     true,
	})
	assert.Equal(t, "live_feed", out.Override)
	assert.InDelta(t, 180, out.Intensity, 0.001)
	assert.NotNil(t, out.Live)
	assert.Equal(t, "moderate", out.Live.Index)
}

func TestChainLiveFeedCountryGate(t *testing.T) {
	live := &fakeLive{reading: &model.LiveReading{Forecast: 180}}
	c := NewChain(100, []string{"GBR"}, live)

	out := c.Resolve(context.Background(), Query{
		CountryISO3: "FRA",
		ModelCI:     56,
		ModelOK:     true,
	})
	assert.Empty(t, out.Override)
	assert.InDelta(t, 56, out.Intensity, 0.001)
	assert.Zero(t, live.calls)
}

func TestChainLiveFeedFailureFallsThrough(t *testing.T) {
	live := &fakeLive{err: eris.New("connection refused")}
	c := NewChain(100, []string{"GBR"}, live)

	out := c.Resolve(context.Background(), Query{
		CountryISO3: "GBR",
		ModelCI:     300,
		ModelOK:     true,
	})
	assert.Empty(t, out.Override)
	assert.InDelta(t, 300, out.Intensity, 0.001)
	assert.True(t, out.LiveUnreachable)
	assert.Equal(t, 1, live.calls)
}

func TestChainLiveDisabled(t *testing.T) {
	live := &fakeLive{reading: &model.LiveReading{Forecast: 180}}
	c := NewChain(100, []string{"GBR"}, live)

	out := c.Resolve(context.Background(), Query{
		CountryISO3:  "GBR",
		LiveDisabled: true,
		ModelCI:      300,
		ModelOK:      true,
	})
	assert.Empty(t, out.Override)
	assert.InDelta(t, 300, out.Intensity, 0.001)
	assert.Zero(t, live.calls)
}

func TestChainNoLiveSource(t *testing.T) {
	c := NewChain(100, []string{"GBR"}, nil)
	out := c.Resolve(context.Background(), Query{
		CountryISO3: "GBR",
		ModelCI:     300,
		ModelOK:     true,
	})
	assert.Empty(t, out.Override)
	assert.InDelta(t, 300, out.Intensity, 0.001)
}

func TestChainNoModelFallsToBaseline(t *testing.T) {
	c := NewChain(100, nil, nil)
	out := c.Resolve(context.Background(), Query{
		BaseCI: 475,
	})
	assert.InDelta(t, 475, out.Intensity, 0.001)
	assert.True(t, out.ModelUnavailable)
	assert.Empty(t, out.Override)
}
