// Package spatial provides great-circle nearest-neighbor indexes over point
// sets and containment queries over zone polygons.
package spatial

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/spatial/vptree"
)

// EarthRadiusKm is the mean Earth radius used for all distance conversions.
const EarthRadiusKm = 6371.0

// KmToRad converts a surface distance in kilometers to central-angle radians.
func KmToRad(km float64) float64 { return km / EarthRadiusKm }

// RadToKm converts a central angle in radians to surface kilometers.
func RadToKm(rad float64) float64 { return rad * EarthRadiusKm }

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	p := point{lat: lat1, lon: lon1}
	q := point{lat: lat2, lon: lon2}
	return RadToKm(p.Distance(q))
}

// point is a geographic coordinate satisfying vptree.Comparable under the
// haversine metric, which is a true metric on the sphere.
type point struct {
	lat, lon float64
	idx      int
}

// Distance returns the central angle between p and the given Comparable
// in radians.
func (p point) Distance(c vptree.Comparable) float64 {
	q := c.(point)
	lat1 := p.lat * math.Pi / 180
	lat2 := q.lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (q.lon - p.lon) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return 2 * math.Asin(math.Sqrt(s))
}

// Neighbor is a single nearest-neighbor query result. Index refers to the
// position in the slice the tree was built from; DistKm is the great-circle
// distance to the query point.
type Neighbor struct {
	Index  int
	DistKm float64
}

// Tree is an immutable great-circle nearest-neighbor index over a fixed
// point set. The zero value is an empty tree.
type Tree struct {
	tree *vptree.Tree
	n    int
}

// NewTree builds an index over parallel latitude/longitude slices. The
// returned neighbors reference positions in those slices.
func NewTree(lats, lons []float64) (*Tree, error) {
	if len(lats) != len(lons) {
		return nil, eris.New("spatial: lat/lon length mismatch")
	}
	if len(lats) == 0 {
		return &Tree{}, nil
	}
	pts := make([]vptree.Comparable, len(lats))
	for i := range lats {
		pts[i] = point{lat: lats[i], lon: lons[i], idx: i}
	}
	t, err := vptree.New(pts, 0, nil)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: build vp-tree")
	}
	return &Tree{tree: t, n: len(pts)}, nil
}

// Len returns the number of indexed points.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return t.n
}

// Nearest returns the single closest point to (lat, lon), or ok=false for an
// empty tree.
func (t *Tree) Nearest(lat, lon float64) (Neighbor, bool) {
	if t.Len() == 0 {
		return Neighbor{}, false
	}
	c, d := t.tree.Nearest(point{lat: lat, lon: lon})
	return Neighbor{Index: c.(point).idx, DistKm: RadToKm(d)}, true
}

// KNearest returns up to k closest points to (lat, lon), ordered by
// ascending distance.
func (t *Tree) KNearest(lat, lon float64, k int) []Neighbor {
	if t.Len() == 0 || k <= 0 {
		return nil
	}
	keep := vptree.NewNKeeper(k)
	t.tree.NearestSet(keep, point{lat: lat, lon: lon})
	return collect(keep.Heap)
}

// Within returns all points within radiusKm of (lat, lon), ordered by
// ascending distance.
func (t *Tree) Within(lat, lon, radiusKm float64) []Neighbor {
	if t.Len() == 0 || radiusKm <= 0 {
		return nil
	}
	keep := vptree.NewDistKeeper(KmToRad(radiusKm))
	t.tree.NearestSet(keep, point{lat: lat, lon: lon})
	return collect(keep.Heap)
}

func collect(heap []vptree.ComparableDist) []Neighbor {
	out := make([]Neighbor, 0, len(heap))
	for _, cd := range heap {
		if cd.Comparable == nil {
			continue
		}
		out = append(out, Neighbor{
			Index:  cd.Comparable.(point).idx,
			DistKm: RadToKm(cd.Dist),
		})
	}
	// Keepers return a heap, not a sorted slice.
	sort.Slice(out, func(i, j int) bool { return out[i].DistKm < out[j].DistKm })
	return out
}
