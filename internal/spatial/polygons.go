package spatial

import (
	"math"

	"github.com/tidwall/rtree"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// polygon is a single keyed ring set. rings[0] is the outer boundary,
// the rest are holes.
type polygon struct {
	key    string
	layout geom.Layout
	rings  [][]float64
	minX   float64
	minY   float64
	maxX   float64
	maxY   float64
}

// PolygonIndex answers point-in-polygon and bounded nearest-boundary
// queries over a set of keyed zone polygons. Coordinates are geographic
// degrees with X=longitude, Y=latitude.
type PolygonIndex struct {
	polys []polygon
	tree  rtree.RTreeG[int]
}

// NewPolygonIndex returns an empty index.
func NewPolygonIndex() *PolygonIndex {
	return &PolygonIndex{}
}

// Len returns the number of indexed polygons, counting each member of a
// multi-polygon separately.
func (ix *PolygonIndex) Len() int { return len(ix.polys) }

// Add indexes a polygon or multi-polygon under the given zone key.
func (ix *PolygonIndex) Add(key string, g geom.T) {
	switch t := g.(type) {
	case *geom.Polygon:
		ix.addPolygon(key, t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			ix.addPolygon(key, t.Polygon(i))
		}
	}
}

func (ix *PolygonIndex) addPolygon(key string, p *geom.Polygon) {
	if p.NumLinearRings() == 0 {
		return
	}
	poly := polygon{
		key:    key,
		layout: p.Layout(),
		minX:   math.Inf(1),
		minY:   math.Inf(1),
		maxX:   math.Inf(-1),
		maxY:   math.Inf(-1),
	}
	stride := p.Layout().Stride()
	for i := 0; i < p.NumLinearRings(); i++ {
		flat := p.LinearRing(i).FlatCoords()
		poly.rings = append(poly.rings, flat)
		if i == 0 {
			for j := 0; j+1 < len(flat); j += stride {
				poly.minX = math.Min(poly.minX, flat[j])
				poly.maxX = math.Max(poly.maxX, flat[j])
				poly.minY = math.Min(poly.minY, flat[j+1])
				poly.maxY = math.Max(poly.maxY, flat[j+1])
			}
		}
	}
	idx := len(ix.polys)
	ix.polys = append(ix.polys, poly)
	ix.tree.Insert([2]float64{poly.minX, poly.minY}, [2]float64{poly.maxX, poly.maxY}, idx)
}

// Contains returns the key of a polygon containing (lat, lon). Holes
// exclude: a point inside a hole does not match that polygon.
func (ix *PolygonIndex) Contains(lat, lon float64) (string, bool) {
	var key string
	found := false
	pt := geom.Coord{lon, lat}
	ix.tree.Search([2]float64{lon, lat}, [2]float64{lon, lat}, func(min, max [2]float64, idx int) bool {
		p := ix.polys[idx]
		if !xy.IsPointInRing(p.layout, pt, p.rings[0]) {
			return true
		}
		for _, hole := range p.rings[1:] {
			if xy.IsPointInRing(p.layout, pt, hole) {
				return true
			}
		}
		key = p.key
		found = true
		return false
	})
	return key, found
}

// NearestWithin returns the key of the polygon whose outer boundary is
// closest to (lat, lon) in planar degree distance, provided it lies
// within maxDeg. Used as a coastal fallback when a point narrowly misses
// every polygon.
func (ix *PolygonIndex) NearestWithin(lat, lon, maxDeg float64) (string, bool) {
	if maxDeg <= 0 {
		return "", false
	}
	best := math.Inf(1)
	var key string
	ix.tree.Search(
		[2]float64{lon - maxDeg, lat - maxDeg},
		[2]float64{lon + maxDeg, lat + maxDeg},
		func(min, max [2]float64, idx int) bool {
			p := ix.polys[idx]
			d := ringDistanceDeg(lon, lat, p.rings[0], p.layout.Stride())
			if d < best {
				best = d
				key = p.key
			}
			return true
		})
	if best <= maxDeg {
		return key, true
	}
	return "", false
}

// ringDistanceDeg returns the planar distance in degrees from (x, y) to the
// nearest segment of the ring's flat coordinates.
func ringDistanceDeg(x, y float64, flat []float64, stride int) float64 {
	best := math.Inf(1)
	for i := 0; i+stride+1 < len(flat); i += stride {
		d := segmentDistance(x, y, flat[i], flat[i+1], flat[i+stride], flat[i+stride+1])
		if d < best {
			best = d
		}
	}
	return best
}

func segmentDistance(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}
