package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuelCategoryMembership(t *testing.T) {
	assert.True(t, FuelCoal.IsFossil())
	assert.True(t, FuelNaturalGas.IsFossil())
	assert.True(t, FuelPetroleum.IsFossil())
	assert.True(t, FuelFossil.IsFossil())
	assert.False(t, FuelSolar.IsFossil())

	assert.True(t, FuelSolar.IsClean())
	assert.True(t, FuelWind.IsClean())
	assert.True(t, FuelHydro.IsClean())
	assert.True(t, FuelNuclear.IsClean())
	assert.True(t, FuelGeothermal.IsClean())
	assert.False(t, FuelCoal.IsClean())
	assert.False(t, FuelFossil.IsClean())
}

func TestZoneFuelEF(t *testing.T) {
	assert.InDelta(t, 995, ZoneFuelEF("coal"), 0.001)
	assert.InDelta(t, 490, ZoneFuelEF("gas"), 0.001)
	assert.InDelta(t, 29, ZoneFuelEF("nuclear"), 0.001)
	assert.InDelta(t, 26, ZoneFuelEF("hydro discharge"), 0.001)
	// Unknown fuels fall back to the world average.
	assert.InDelta(t, DefaultCI, ZoneFuelEF("antimatter"), 0.001)
}

func TestCapacityFuelGroups(t *testing.T) {
	assert.True(t, IsCleanCapacityFuel("hydro storage"))
	assert.True(t, IsCleanCapacityFuel("solar"))
	assert.False(t, IsCleanCapacityFuel("gas"))

	assert.True(t, IsFossilCapacityFuel("coal"))
	assert.True(t, IsFossilCapacityFuel("oil"))
	assert.False(t, IsFossilCapacityFuel("nuclear"))
	assert.False(t, IsFossilCapacityFuel("battery discharge"))
}

func TestGreenScore(t *testing.T) {
	assert.InDelta(t, 100, GreenScore(0), 0.001)
	assert.InDelta(t, 50, GreenScore(450), 0.001)
	assert.InDelta(t, 0, GreenScore(900), 0.001)
	assert.InDelta(t, 0, GreenScore(2000), 0.001, "clamps at zero")
}

func TestGrade(t *testing.T) {
	cases := []struct {
		score float64
		grade string
	}{
		{95, "A"},
		{85, "A"},
		{84.9, "B"},
		{70, "B"},
		{60, "C"},
		{45, "D"},
		{30, "E"},
		{10, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, Grade(tc.score), "score %v", tc.score)
	}
}

func TestCountryProfileFractions(t *testing.T) {
	p := CountryProfile{
		TotalTWh:      100,
		FossilTWh:     60,
		CoalTWh:       20,
		GasTWh:        25,
		NuclearTWh:    19,
		RenewablesTWh: 21,
	}
	assert.InDelta(t, 0.60, p.FossilFrac(), 0.001)
	assert.InDelta(t, 0.40, p.CleanFrac(), 0.001)
	assert.InDelta(t, 0.20, p.CoalFrac(), 0.001)
	assert.InDelta(t, 0.25, p.GasFrac(), 0.001)
	assert.InDelta(t, 0.19, p.NuclearFrac(), 0.001)
	assert.InDelta(t, 0.21, p.RenewFrac(), 0.001)
}

func TestCountryProfileFractionsZeroTotal(t *testing.T) {
	p := CountryProfile{FossilTWh: 60}
	assert.Zero(t, p.FossilFrac())
	assert.Zero(t, p.CleanFrac())
}

func TestAssetTableLenNil(t *testing.T) {
	var tab *AssetTable
	assert.Zero(t, tab.Len())
	assert.Equal(t, 2, (&AssetTable{Assets: make([]Asset, 2)}).Len())
}
