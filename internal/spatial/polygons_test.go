package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func squarePolygon(t *testing.T, minLon, minLat, maxLon, maxLat float64) *geom.Polygon {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords([][]geom.Coord{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}})
	require.NoError(t, err)
	return p
}

func TestContains(t *testing.T) {
	ix := NewPolygonIndex()
	ix.Add("west", squarePolygon(t, -10, 40, 0, 50))
	ix.Add("east", squarePolygon(t, 0, 40, 10, 50))
	assert.Equal(t, 2, ix.Len())

	key, ok := ix.Contains(45, -5)
	require.True(t, ok)
	assert.Equal(t, "west", key)

	key, ok = ix.Contains(45, 5)
	require.True(t, ok)
	assert.Equal(t, "east", key)

	_, ok = ix.Contains(45, 20)
	assert.False(t, ok)
	_, ok = ix.Contains(60, -5)
	assert.False(t, ok)
}

func TestContainsHoleExcludes(t *testing.T) {
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords([][]geom.Coord{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	})
	require.NoError(t, err)

	ix := NewPolygonIndex()
	ix.Add("donut", p)

	_, ok := ix.Contains(5, 5)
	assert.False(t, ok, "point inside the hole")

	key, ok := ix.Contains(2, 2)
	require.True(t, ok)
	assert.Equal(t, "donut", key)
}

func TestAddMultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(squarePolygon(t, 0, 0, 1, 1)))
	require.NoError(t, mp.Push(squarePolygon(t, 5, 5, 6, 6)))

	ix := NewPolygonIndex()
	ix.Add("islands", mp)
	assert.Equal(t, 2, ix.Len())

	key, ok := ix.Contains(0.5, 0.5)
	require.True(t, ok)
	assert.Equal(t, "islands", key)
	key, ok = ix.Contains(5.5, 5.5)
	require.True(t, ok)
	assert.Equal(t, "islands", key)
}

func TestNearestWithin(t *testing.T) {
	ix := NewPolygonIndex()
	ix.Add("zone", squarePolygon(t, 0, 40, 10, 50))

	// A coastal point just east of the boundary.
	key, ok := ix.NearestWithin(45, 10.3, 0.5)
	require.True(t, ok)
	assert.Equal(t, "zone", key)

	// Too far away for the fallback.
	_, ok = ix.NearestWithin(45, 12, 0.5)
	assert.False(t, ok)

	// A non-positive distance disables the fallback.
	_, ok = ix.NearestWithin(45, 10.1, 0)
	assert.False(t, ok)
}

func TestNearestWithinPicksClosest(t *testing.T) {
	ix := NewPolygonIndex()
	ix.Add("near", squarePolygon(t, 0, 40, 10, 50))
	ix.Add("far", squarePolygon(t, 11, 40, 20, 50))

	key, ok := ix.NearestWithin(45, 10.4, 1.0)
	require.True(t, ok)
	assert.Equal(t, "near", key)
}
