package boundary

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// LoadNationalBoundary reads the precomputed national boundary asset. The
// file may hold a FeatureCollection, a single Feature or a bare geometry;
// all polygons found are merged into one multipolygon.
func LoadNationalBoundary(path string) (*geom.MultiPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: read national boundary %s", path)
	}
	return parseNationalBoundary(data)
}

func parseNationalBoundary(data []byte) (*geom.MultiPolygon, error) {
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return nil, eris.Wrap(err, "boundary: parse national boundary")
	}

	var geometries []geom.T
	switch peek.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrap(err, "boundary: parse feature collection")
		}
		for _, f := range fc.Features {
			geometries = append(geometries, f.Geometry)
		}
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "boundary: parse feature")
		}
		geometries = append(geometries, f.Geometry)
	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrap(err, "boundary: parse geometry")
		}
		geometries = append(geometries, g)
	}

	merged := geom.NewMultiPolygon(geom.XY)
	for _, g := range geometries {
		switch t := g.(type) {
		case *geom.Polygon:
			if err := merged.Push(t); err != nil {
				return nil, eris.Wrap(err, "boundary: merge polygon")
			}
		case *geom.MultiPolygon:
			for i := 0; i < t.NumPolygons(); i++ {
				if err := merged.Push(t.Polygon(i)); err != nil {
					return nil, eris.Wrap(err, "boundary: merge multipolygon part")
				}
			}
		default:
			return nil, eris.Errorf("boundary: unsupported geometry type %T", g)
		}
	}

	if merged.NumPolygons() == 0 {
		return nil, eris.New("boundary: national boundary holds no polygons")
	}
	return merged, nil
}
