package country

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.json")
	data := `{
		"FRA": {
			"country_name": "France",
			"carbon_intensity": 56,
			"total_TWh": 550,
			"fossil_TWh": 50,
			"coal_TWh": 5,
			"gas_TWh": 35,
			"nuclear_TWh": 380,
			"renewables_TWh": 120
		},
		"XXX": {
			"country_name": "Nowhere",
			"carbon_intensity": null,
			"total_TWh": 10,
			"fossil_TWh": 10
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	fra := profiles["FRA"]
	assert.Equal(t, "FRA", fra.ISO3)
	assert.Equal(t, "France", fra.Name)
	assert.InDelta(t, 56, fra.CI, 0.001)
	assert.InDelta(t, 50.0/550.0, fra.FossilFrac(), 0.0001)
	assert.InDelta(t, 500.0/550.0, fra.CleanFrac(), 0.0001)

	// A null carbon intensity keeps the mix but zeroes the baseline.
	xxx := profiles["XXX"]
	assert.Zero(t, xxx.CI)
	assert.InDelta(t, 1.0, xxx.FossilFrac(), 0.0001)
}

func TestLoadProfilesMissingFile(t *testing.T) {
	_, err := LoadProfiles("/nonexistent/mix.json")
	assert.Error(t, err)
}

func TestLoadProfilesBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err := LoadProfiles(path)
	assert.Error(t, err)
}

func TestLoadFuelWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"coal": 995, "natural_gas": 490, "world_average": 475}`), 0644))

	weights, err := LoadFuelWeights(path)
	require.NoError(t, err)
	assert.InDelta(t, 995, weights["coal"], 0.001)
	assert.InDelta(t, 475, weights["world_average"], 0.001)
}

func TestLoadFuelWeightsMissingFile(t *testing.T) {
	_, err := LoadFuelWeights("/nonexistent/weights.json")
	assert.Error(t, err)
}
