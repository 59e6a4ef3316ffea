package inference

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, a Artifact) string {
	t.Helper()
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func testArtifact() Artifact {
	return Artifact{
		Features:     []string{"country_ci", "abs_lat", "local_pct_coal"},
		ScalerMean:   []float64{400, 30, 0.2},
		ScalerScale:  []float64{200, 15, 0.1},
		Coefficients: []float64{150, -5, 40},
		Intercept:    420,
	}
}

func TestLoadArtifact(t *testing.T) {
	path := writeArtifact(t, testArtifact())
	a, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Len(t, a.Features, 3)
	assert.InDelta(t, 420, a.Intercept, 0.001)
}

func TestLoadArtifactValidation(t *testing.T) {
	missing := testArtifact()
	missing.Features = nil
	_, err := LoadArtifact(writeArtifact(t, missing))
	assert.Error(t, err)

	mismatched := testArtifact()
	mismatched.Coefficients = []float64{1}
	_, err = LoadArtifact(writeArtifact(t, mismatched))
	assert.Error(t, err)

	zeroScale := testArtifact()
	zeroScale.ScalerScale[1] = 0
	_, err = LoadArtifact(writeArtifact(t, zeroScale))
	assert.Error(t, err)

	_, err = LoadArtifact("/nonexistent/model.json")
	assert.Error(t, err)
}

func TestVectorOrderAndDefaults(t *testing.T) {
	a := testArtifact()
	x := a.Vector(map[string]float64{
		"abs_lat":    48.8,
		"country_ci": 56,
		"ignored":    999,
	})
	// Order follows the artifact; names the resolver did not compute
	// default to zero.
	assert.Equal(t, []float64{56, 48.8, 0}, x)
}

func TestScore(t *testing.T) {
	a := Artifact{
		Features:     []string{"a", "b"},
		ScalerMean:   []float64{0, 0},
		ScalerScale:  []float64{1, 1},
		Coefficients: []float64{2, 3},
		Intercept:    1,
	}
	assert.InDelta(t, 6, a.Score([]float64{1, 1}), 0.0001)
	assert.InDelta(t, 1, a.Score([]float64{0, 0}), 0.0001)
}

func TestScoreClampsNonNegative(t *testing.T) {
	a := Artifact{
		Features:     []string{"a"},
		ScalerMean:   []float64{0},
		ScalerScale:  []float64{1},
		Coefficients: []float64{-10},
		Intercept:    5,
	}
	assert.Zero(t, a.Score([]float64{100}))
}

func TestScoreBatchMatchesScore(t *testing.T) {
	a := testArtifact()
	rows := [][]float64{
		{56, 48.8, 0},
		{820, 28.6, 0.9},
		{400, 30, 0.2},
		{0, 0, 0},
	}
	got := a.ScoreBatch(rows)
	require.Len(t, got, len(rows))
	for i, row := range rows {
		assert.InDelta(t, a.Score(row), got[i], 1e-9, "row %d", i)
	}
}

func TestScoreBatchEmpty(t *testing.T) {
	a := testArtifact()
	assert.Nil(t, a.ScoreBatch(nil))
}
