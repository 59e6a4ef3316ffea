package zone

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZone(t *testing.T, dir, name, yaml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(yaml), 0644))
}

func TestLoadMixedSchemas(t *testing.T) {
	dir := t.TempDir()

	// List-shaped center point, timestamped ratio entries, per-fuel capacity.
	writeZone(t, dir, "FR", `
center_point: [2.3, 46.6]
fallbackZoneMixes:
  powerOriginRatios:
    - _source: estimate
      datetime: '2020-01-01'
      value:
        nuclear: 0.5
        gas: 0.3
        hydro: 0.2
    - _source: estimate
      datetime: '2021-01-01'
      value:
        nuclear: 0.7
        gas: 0.1
        hydro: 0.2
capacity:
  nuclear:
    - datetime: '2021-01-01'
      value: 61370
  gas: 5000
  coal:
    value: 1000
`)
	// Map-shaped center point, single ratio entry.
	writeZone(t, dir, "NO", `
center_point:
  lat: 64.0
  lon: 11.0
fallbackZoneMixes:
  powerOriginRatios:
    value:
      hydro: 0.95
      geothermal: 0.05
`)
	// No center point and no bounding box: skipped.
	writeZone(t, dir, "broken", `
fallbackZoneMixes:
  powerOriginRatios:
    value:
      coal: 1.0
`)

	zones, err := Load(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, zones, 2)

	byKey := map[string]int{}
	for i, z := range zones {
		byKey[z.Key] = i
	}

	fr := zones[byKey["FR"]]
	assert.InDelta(t, 46.6, fr.CenterLat, 0.001)
	assert.InDelta(t, 2.3, fr.CenterLon, 0.001)
	// Latest ratio entry wins: 0.7*29 + 0.1*490 + 0.2*26.
	assert.InDelta(t, 74.5, fr.EstimatedCI, 0.001)
	require.True(t, fr.HasCapacity)
	assert.InDelta(t, 61370.0/67370.0, fr.CleanCapFrac, 0.0001)
	assert.InDelta(t, 6000.0/67370.0, fr.FossilCapFrac, 0.0001)
	assert.InDelta(t, 1000, fr.CoalCapMW, 0.001)

	no := zones[byKey["NO"]]
	assert.InDelta(t, 64.0, no.CenterLat, 0.001)
	// 0.95*26 + 0.05*38.
	assert.InDelta(t, 26.6, no.EstimatedCI, 0.001)
	assert.False(t, no.HasCapacity)
}

func TestLoadBoundingBoxCenter(t *testing.T) {
	dir := t.TempDir()
	writeZone(t, dir, "box", `
bounding_box:
  - [0.0, 40.0]
  - [10.0, 50.0]
fallbackZoneMixes:
  powerOriginRatios:
    value:
      gas: 1.0
`)
	zones, err := Load(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.InDelta(t, 45, zones[0].CenterLat, 0.001)
	assert.InDelta(t, 5, zones[0].CenterLon, 0.001)
	assert.InDelta(t, 490, zones[0].EstimatedCI, 0.001)
}

func TestLoadDirectEmissionFactorOverride(t *testing.T) {
	dir := t.TempDir()
	writeZone(t, dir, "ovr", `
center_point: [1.0, 1.0]
fallbackZoneMixes:
  powerOriginRatios:
    value:
      gas: 1.0
emissionFactors:
  direct:
    gas:
      - datetime: '2021-01-01'
        value: 400
`)
	zones, err := Load(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.InDelta(t, 400, zones[0].EstimatedCI, 0.001)
}

func TestLoadSkipsNonNumericKeys(t *testing.T) {
	dir := t.TempDir()
	writeZone(t, dir, "meta", `
center_point: [1.0, 1.0]
fallbackZoneMixes:
  powerOriginRatios:
    value:
      _source: guessed
      datetime: '2021-01-01'
      coal: 0.5
      wind: 0.5
`)
	zones, err := Load(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.InDelta(t, 0.5*995+0.5*26, zones[0].EstimatedCI, 0.001)
}

func TestLoadEmptyDirErrors(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir(), nil)
	assert.Error(t, err)
}
