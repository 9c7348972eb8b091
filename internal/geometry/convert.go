package geometry

import (
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// PolygonFromShape converts a shapefile polygon to an orb.Polygon. Each
// shapefile part becomes one ring; the first part is the outer ring and
// later parts are holes, per the shapefile convention for census blocks.
// Returns a nil polygon for nil or empty shapes.
func PolygonFromShape(shape shp.Shape) orb.Polygon {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	poly := make(orb.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{p.Points[j].X, p.Points[j].Y})
		}
		if len(ring) < 4 {
			continue
		}
		poly = append(poly, ring)
	}

	if len(poly) == 0 {
		return nil
	}
	return poly
}

// PointFromShape converts a shapefile point to an orb.Point.
func PointFromShape(shape shp.Shape) (orb.Point, bool) {
	pt, ok := shape.(*shp.Point)
	if !ok || pt == nil {
		return orb.Point{}, false
	}
	return orb.Point{pt.X, pt.Y}, true
}

// EncodeEWKB converts a multipolygon to EWKB bytes with SRID 4326 for
// PostGIS storage.
func EncodeEWKB(mp orb.MultiPolygon) ([]byte, error) {
	out := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for _, poly := range mp {
		gp := geom.NewPolygon(geom.XY)
		for _, ring := range poly {
			flat := make([]float64, 0, len(ring)*2)
			for _, pt := range ring {
				flat = append(flat, pt[0], pt[1])
			}
			if err := gp.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
				return nil, eris.Wrap(err, "geometry: build ring")
			}
		}
		if err := out.Push(gp); err != nil {
			return nil, eris.Wrap(err, "geometry: build polygon")
		}
	}

	data, err := ewkb.Marshal(out, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB parses EWKB multipolygon bytes back into an orb.MultiPolygon.
func DecodeEWKB(data []byte) (orb.MultiPolygon, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: decode EWKB")
	}
	gmp, ok := g.(*geom.MultiPolygon)
	if !ok {
		return nil, eris.Errorf("geometry: expected multipolygon, got %T", g)
	}

	mp := make(orb.MultiPolygon, 0, gmp.NumPolygons())
	for i := 0; i < gmp.NumPolygons(); i++ {
		gp := gmp.Polygon(i)
		poly := make(orb.Polygon, 0, gp.NumLinearRings())
		for j := 0; j < gp.NumLinearRings(); j++ {
			coords := gp.LinearRing(j).Coords()
			ring := make(orb.Ring, 0, len(coords))
			for _, c := range coords {
				ring = append(ring, orb.Point{c.X(), c.Y()})
			}
			poly = append(poly, ring)
		}
		mp = append(mp, poly)
	}
	return mp, nil
}
