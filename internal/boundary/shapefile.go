package boundary

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadLocalityShapefile reads locality polygons from a shapefile. idField
// names the attribute carrying the numeric locality id. Records sharing a
// locality id are merged into one multipolygon.
func LoadLocalityShapefile(path, idField string) (map[int]*LocalityBoundary, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, idField)
	if idIdx < 0 {
		return nil, eris.Errorf("boundary: field %q not found in %s", idField, path)
	}

	log := zap.L().With(zap.String("component", "boundary.loader"))

	geoms := make(map[int]*geom.MultiPolygon)
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			continue
		}

		raw := strings.TrimSpace(reader.Attribute(idIdx))
		localityID, err := strconv.Atoi(raw)
		if err != nil {
			log.Warn("skipping record with non-numeric locality id", zap.String("value", raw))
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			continue
		}

		if existing, ok := geoms[localityID]; ok {
			for i := 0; i < mp.NumPolygons(); i++ {
				if err := existing.Push(mp.Polygon(i)); err != nil {
					log.Warn("skipping malformed polygon part",
						zap.Int("locality_id", localityID), zap.Error(err))
				}
			}
		} else {
			geoms[localityID] = mp
		}
	}

	boundaries := make(map[int]*LocalityBoundary, len(geoms))
	for localityID, mp := range geoms {
		b, err := NewLocalityBoundary(localityID, mp)
		if err != nil {
			log.Warn("skipping locality with unusable geometry",
				zap.Int("locality_id", localityID), zap.Error(err))
			continue
		}
		boundaries[localityID] = b
	}

	log.Info("locality boundaries loaded", zap.Int("localities", len(boundaries)))
	return boundaries, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon converts a shapefile polygon to a geom.MultiPolygon.
// Each part becomes a single-ring polygon; ring orientation is not inspected.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		coords := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}
		if len(coords) < 4 {
			continue
		}

		poly := geom.NewPolygon(geom.XY)
		if _, err := poly.SetCoords([][]geom.Coord{coords}); err != nil {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
