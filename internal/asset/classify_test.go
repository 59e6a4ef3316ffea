package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridsync/carbon-engine/internal/model"
)

func TestClassifyFuel(t *testing.T) {
	cases := []struct {
		raw  string
		want model.FuelCategory
	}{
		{"coal", model.FuelCoal},
		{"Coal Power Plant", model.FuelCoal},
		{"lignite coal", model.FuelCoal},
		{"natural gas", model.FuelNaturalGas},
		{"CCGT", model.FuelNaturalGas},
		{"OCGT peaker", model.FuelNaturalGas},
		{"oil", model.FuelPetroleum},
		{"diesel generator", model.FuelPetroleum},
		{"petroleum products", model.FuelPetroleum},
		{"solar", model.FuelSolar},
		{"Solar PV", model.FuelSolar},
		{"onshore wind", model.FuelWind},
		{"hydro", model.FuelHydro},
		{"run-of-river water", model.FuelHydro},
		{"nuclear", model.FuelNuclear},
		{"geothermal", model.FuelGeothermal},
		{"biomass", model.FuelFossil},
		{"biogas digester", model.FuelFossil},
		{"waste incineration", model.FuelFossil},
		{"", model.FuelFossil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyFuel(tc.raw), "raw type %q", tc.raw)
	}
}

func TestClassifyFuelFirstMatchWins(t *testing.T) {
	// Rules evaluate in order, so a label matching both coal and gas
	// classifies as coal.
	assert.Equal(t, model.FuelCoal, ClassifyFuel("coal gasification"))
	// Gas outranks petroleum in the rule order.
	assert.Equal(t, model.FuelNaturalGas, ClassifyFuel("gas oil"))
}

func TestClassifierMemoizes(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, model.FuelWind, c.Classify("offshore wind"))
	// Second lookup hits the cache and must agree.
	assert.Equal(t, model.FuelWind, c.Classify("offshore wind"))
	assert.Equal(t, model.FuelFossil, c.Classify("mystery"))
}

func TestClassifierConcurrent(t *testing.T) {
	c := NewClassifier()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.Classify("coal")
				c.Classify("solar pv")
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.Equal(t, model.FuelCoal, c.Classify("coal"))
}
