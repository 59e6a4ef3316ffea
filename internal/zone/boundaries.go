package zone

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/gridsync/carbon-engine/internal/spatial"
)

// LoadBoundaries builds a polygon index from a zone boundary file. GeoJSON
// feature collections and shapefiles are both accepted; the zone key comes
// from the feature's zoneName property or the matching attribute column.
func LoadBoundaries(path string) (*spatial.PolygonIndex, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return loadGeoJSON(path)
	case ".shp":
		return loadShapefile(path)
	}
	return nil, eris.Errorf("zone: unsupported boundary format %s", path)
}

func loadGeoJSON(path string) (*spatial.PolygonIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zone: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, eris.Wrapf(err, "zone: decode %s", path)
	}

	ix := spatial.NewPolygonIndex()
	skipped := 0
	for _, feat := range fc.Features {
		key, _ := feat.Properties["zoneName"].(string)
		if key == "" || feat.Geometry == nil {
			skipped++
			continue
		}
		ix.Add(key, feat.Geometry)
	}
	if ix.Len() == 0 {
		return nil, eris.Errorf("zone: no polygons in %s", path)
	}
	zap.L().Info("zone boundaries loaded",
		zap.Int("polygons", ix.Len()), zap.Int("skipped", skipped))
	return ix, nil
}

// candidate attribute names for the zone key column, checked in order.
var shapeKeyFields = []string{"zonename", "zone_name", "zone", "name"}

func loadShapefile(path string) (*spatial.PolygonIndex, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zone: open %s", path)
	}
	defer r.Close()

	keyField := -1
	for i, f := range r.Fields() {
		name := strings.ToLower(f.String())
		for _, want := range shapeKeyFields {
			if name == want {
				keyField = i
				break
			}
		}
		if keyField >= 0 {
			break
		}
	}
	if keyField < 0 {
		return nil, eris.Errorf("zone: no zone-name attribute in %s", path)
	}

	ix := spatial.NewPolygonIndex()
	for r.Next() {
		row, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		key := r.ReadAttribute(row, keyField)
		if key == "" {
			continue
		}
		for _, ring := range shapeRings(poly) {
			g := geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)})
			ix.Add(key, g)
		}
	}
	if ix.Len() == 0 {
		return nil, eris.Errorf("zone: no polygons in %s", path)
	}
	zap.L().Info("zone boundaries loaded", zap.Int("polygons", ix.Len()))
	return ix, nil
}

// shapeRings splits a shapefile polygon into its part rings as XY flat
// coordinate slices. Each part indexes as its own outer ring.
func shapeRings(p *shp.Polygon) [][]float64 {
	parts := append([]int32{}, p.Parts...)
	parts = append(parts, int32(len(p.Points)))
	rings := make([][]float64, 0, len(p.Parts))
	for i := 0; i+1 < len(parts); i++ {
		start, end := parts[i], parts[i+1]
		if end-start < 3 {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for _, pt := range p.Points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		rings = append(rings, flat)
	}
	return rings
}
