// Package asset loads and deduplicates physical generator and emitter
// records from annual reporting CSVs into in-memory tables.
package asset

import (
	"strings"
	"sync"

	"github.com/gridsync/carbon-engine/internal/model"
)

// fuelRule maps substrings of a raw source type to a fuel category. Rules
// are evaluated in order; the first match wins, so "coal gas" classifies
// as coal.
type fuelRule struct {
	keywords []string
	fuel     model.FuelCategory
}

var fuelRules = []fuelRule{
	{[]string{"coal"}, model.FuelCoal},
	{[]string{"gas", "ccgt", "ocgt"}, model.FuelNaturalGas},
	{[]string{"oil", "petrol", "diesel", "petroleum"}, model.FuelPetroleum},
	{[]string{"solar", "pv"}, model.FuelSolar},
	{[]string{"wind"}, model.FuelWind},
	{[]string{"hydro", "water"}, model.FuelHydro},
	{[]string{"nuclear"}, model.FuelNuclear},
	{[]string{"geotherm"}, model.FuelGeothermal},
	{[]string{"biomass", "bio"}, model.FuelFossil},
}

// ClassifyFuel maps a raw source type string to a fuel category. Unknown
// types classify as generic fossil, the conservative default.
func ClassifyFuel(sourceType string) model.FuelCategory {
	s := strings.ToLower(sourceType)
	for _, rule := range fuelRules {
		for _, kw := range rule.keywords {
			if strings.Contains(s, kw) {
				return rule.fuel
			}
		}
	}
	return model.FuelFossil
}

// Classifier memoizes ClassifyFuel for the batch path, where the same raw
// type strings recur across thousands of assets. Safe for concurrent use.
type Classifier struct {
	mu    sync.RWMutex
	cache map[string]model.FuelCategory
}

func NewClassifier() *Classifier {
	return &Classifier{cache: make(map[string]model.FuelCategory)}
}

func (c *Classifier) Classify(sourceType string) model.FuelCategory {
	c.mu.RLock()
	f, ok := c.cache[sourceType]
	c.mu.RUnlock()
	if ok {
		return f
	}
	f = ClassifyFuel(sourceType)
	c.mu.Lock()
	c.cache[sourceType] = f
	c.mu.Unlock()
	return f
}
