package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A small set of city coordinates with known pairwise distances.
var (
	cityLats = []float64{48.8566, 51.5074, 52.5200, 40.7128, 35.6762}
	cityLons = []float64{2.3522, -0.1278, 13.4050, -74.0060, 139.6503}
	// paris=0 london=1 berlin=2 newyork=3 tokyo=4
)

func TestHaversineKm(t *testing.T) {
	// One degree of longitude at the equator.
	assert.InDelta(t, 111.19, HaversineKm(0, 0, 0, 1), 0.1)
	// Paris to London is roughly 344 km.
	assert.InDelta(t, 344, HaversineKm(cityLats[0], cityLons[0], cityLats[1], cityLons[1]), 5)
	// Zero distance to self.
	assert.Zero(t, HaversineKm(48.85, 2.35, 48.85, 2.35))
}

func TestKmRadConversions(t *testing.T) {
	assert.InDelta(t, 1.0, RadToKm(KmToRad(1.0)), 1e-12)
	assert.InDelta(t, EarthRadiusKm, RadToKm(1), 1e-9)
}

func TestNewTreeLengthMismatch(t *testing.T) {
	_, err := NewTree([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestEmptyTree(t *testing.T) {
	tr, err := NewTree(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, tr.Len())

	_, ok := tr.Nearest(0, 0)
	assert.False(t, ok)
	assert.Empty(t, tr.KNearest(0, 0, 3))
	assert.Empty(t, tr.Within(0, 0, 100))
}

func TestNearest(t *testing.T) {
	tr, err := NewTree(cityLats, cityLons)
	require.NoError(t, err)
	assert.Equal(t, len(cityLats), tr.Len())

	// Query from Brussels: Paris is the closest city.
	n, ok := tr.Nearest(50.8503, 4.3517)
	require.True(t, ok)
	assert.Equal(t, 0, n.Index)
	assert.InDelta(t, 261, n.DistKm, 5)
}

func TestKNearestOrdering(t *testing.T) {
	tr, err := NewTree(cityLats, cityLons)
	require.NoError(t, err)

	ns := tr.KNearest(50.8503, 4.3517, 3)
	require.Len(t, ns, 3)
	// Paris, then London, then Berlin, by ascending distance.
	assert.Equal(t, []int{ns[0].Index, ns[1].Index, ns[2].Index}, []int{0, 1, 2})
	assert.LessOrEqual(t, ns[0].DistKm, ns[1].DistKm)
	assert.LessOrEqual(t, ns[1].DistKm, ns[2].DistKm)
}

func TestKNearestMoreThanAvailable(t *testing.T) {
	tr, err := NewTree(cityLats[:2], cityLons[:2])
	require.NoError(t, err)
	ns := tr.KNearest(50, 4, 10)
	assert.Len(t, ns, 2)
}

func TestWithin(t *testing.T) {
	tr, err := NewTree(cityLats, cityLons)
	require.NoError(t, err)

	// 400 km around Brussels covers Paris and London only.
	ns := tr.Within(50.8503, 4.3517, 400)
	require.Len(t, ns, 2)
	assert.Equal(t, 0, ns[0].Index)
	assert.Equal(t, 1, ns[1].Index)
	for _, n := range ns {
		assert.LessOrEqual(t, n.DistKm, 400.0)
	}

	assert.Empty(t, tr.Within(50.8503, 4.3517, 0))
	// A planet-sized radius returns everything.
	assert.Len(t, tr.Within(0, 0, 25000), len(cityLats))
}

func TestWithinRadiusMonotonic(t *testing.T) {
	tr, err := NewTree(cityLats, cityLons)
	require.NoError(t, err)

	// Growing the radius never shrinks the neighborhood.
	prev := 0
	for _, radius := range []float64{100, 300, 350, 700, 1000, 6000, 10000, 25000} {
		n := len(tr.Within(50.8503, 4.3517, radius))
		assert.GreaterOrEqual(t, n, prev, "radius %.0f km", radius)
		prev = n
	}
	assert.Equal(t, len(cityLats), prev)
}
