// Package boundary answers point-in-polygon and centroid queries against
// preloaded locality polygons and the national boundary.
package boundary

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Fallback national bounding box, used when no national polygon asset is
// supplied. Rough approximation of Israel.
const (
	minNationalLng = 34.0
	maxNationalLng = 36.0
	minNationalLat = 29.0
	maxNationalLat = 34.0
)

// LocalityBoundary holds one locality's polygon geometry and its centroid.
type LocalityBoundary struct {
	LocalityID int

	geometry *geom.MultiPolygon
	centroid geom.Coord
}

// NewLocalityBoundary wraps a multipolygon and precomputes its centroid.
func NewLocalityBoundary(localityID int, mp *geom.MultiPolygon) (*LocalityBoundary, error) {
	if mp == nil || mp.NumPolygons() == 0 {
		return nil, eris.Errorf("boundary: empty geometry for locality %d", localityID)
	}
	centroid, err := xy.Centroid(mp)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: centroid for locality %d", localityID)
	}
	return &LocalityBoundary{LocalityID: localityID, geometry: mp, centroid: centroid}, nil
}

// Contains reports whether the point lies inside the locality polygon.
func (b *LocalityBoundary) Contains(lng, lat float64) bool {
	return multiPolygonContains(b.geometry, geom.Coord{lng, lat})
}

// Centroid returns the polygon centroid as (lng, lat).
func (b *LocalityBoundary) Centroid() (lng, lat float64) {
	return b.centroid.X(), b.centroid.Y()
}

// multiPolygonContains checks ring containment with holes. Each polygon's
// first linear ring is the shell, the rest are holes.
func multiPolygonContains(mp *geom.MultiPolygon, c geom.Coord) bool {
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		if p.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(p.Layout(), c, p.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for r := 1; r < p.NumLinearRings(); r++ {
			if xy.IsPointInRing(p.Layout(), c, p.LinearRing(r).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// Index serves boundary lookups for all known localities plus the national
// boundary used as a last-resort containment check.
type Index struct {
	localities map[int]*LocalityBoundary
	national   *geom.MultiPolygon
}

// NewIndex builds an index. Both arguments may be nil/empty: a missing
// locality polygon is a valid state (distance fallback applies), and a
// missing national polygon falls back to a fixed bounding box.
func NewIndex(localities map[int]*LocalityBoundary, national *geom.MultiPolygon) *Index {
	if localities == nil {
		localities = map[int]*LocalityBoundary{}
	}
	return &Index{localities: localities, national: national}
}

// Boundary returns the locality's boundary, or nil when none was loaded.
func (ix *Index) Boundary(localityID int) *LocalityBoundary {
	return ix.localities[localityID]
}

// NumLocalities reports how many locality polygons are loaded.
func (ix *Index) NumLocalities() int {
	return len(ix.localities)
}

// WithinNationalBounds reports whether the point is inside the national
// polygon, or inside the fallback bounding box when no polygon is loaded.
func (ix *Index) WithinNationalBounds(lng, lat float64) bool {
	if ix.national != nil {
		return multiPolygonContains(ix.national, geom.Coord{lng, lat})
	}
	return minNationalLng < lng && lng < maxNationalLng &&
		minNationalLat < lat && lat < maxNationalLat
}

const earthRadiusKM = 6371.0

// DistanceKM returns the haversine distance between two coordinates.
func DistanceKM(lng1, lat1, lng2, lat2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}
