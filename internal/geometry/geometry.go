// Package geometry wraps the planar-geometry operations the turf pipeline
// needs: adjacency between census blocks, point containment, centroids, and
// projected areas. Geometries are held as orb types in geographic
// coordinates (NAD83 / EPSG:4269 lon-lat).
package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Vertices are quantized before comparison so that coordinates written with
// differing float precision still hash identically. TIGER block boundaries
// are snapped to 1e-6 degrees, well above this grid.
const quantum = 1e-9

type vertexKey struct {
	x, y int64
}

func quantize(p orb.Point) vertexKey {
	return vertexKey{
		x: int64(math.Round(p[0] / quantum)),
		y: int64(math.Round(p[1] / quantum)),
	}
}

// Shape is an accumulated, possibly multi-part region built from one or more
// block polygons. Parts are kept separate rather than dissolved; containment
// and adjacency tests run against each part.
type Shape struct {
	parts    []orb.Polygon
	vertices map[vertexKey]struct{}
}

// NewShape returns a Shape seeded with the given polygons.
func NewShape(polys ...orb.Polygon) *Shape {
	s := &Shape{vertices: make(map[vertexKey]struct{})}
	for _, p := range polys {
		s.Add(p)
	}
	return s
}

// Add unions a polygon into the shape.
func (s *Shape) Add(p orb.Polygon) {
	s.parts = append(s.parts, p)
	for _, ring := range p {
		for _, pt := range ring {
			s.vertices[quantize(pt)] = struct{}{}
		}
	}
}

// Parts returns the component polygons of the shape.
func (s *Shape) Parts() []orb.Polygon {
	return s.parts
}

// MultiPolygon returns the shape as an orb.MultiPolygon.
func (s *Shape) MultiPolygon() orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(s.parts))
	return append(mp, s.parts...)
}

// Touches reports whether the candidate polygon shares at least one boundary
// vertex with the shape. Census blocks form a planar subdivision from a
// single source, so adjacent blocks share identical boundary vertices; a
// shared-vertex test is an exact adjacency predicate for this input.
func (s *Shape) Touches(p orb.Polygon) bool {
	for _, ring := range p {
		for _, pt := range ring {
			if _, ok := s.vertices[quantize(pt)]; ok {
				return true
			}
		}
	}
	return false
}

// ContainsPoint reports whether the point falls inside any part of the shape.
func (s *Shape) ContainsPoint(pt orb.Point) bool {
	for _, part := range s.parts {
		if planar.PolygonContains(part, pt) {
			return true
		}
	}
	return false
}

// Adjacency returns neighbor lists for a set of polygons: j appears in
// result[i] iff polygon j shares a boundary vertex with polygon i. Built
// with a vertex hash so the cost is linear in total vertex count.
func Adjacency(polys []orb.Polygon) [][]int {
	owners := make(map[vertexKey][]int)
	for i, p := range polys {
		seen := make(map[vertexKey]struct{})
		for _, ring := range p {
			for _, pt := range ring {
				k := quantize(pt)
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				owners[k] = append(owners[k], i)
			}
		}
	}

	neighborSets := make([]map[int]struct{}, len(polys))
	for i := range neighborSets {
		neighborSets[i] = make(map[int]struct{})
	}
	for _, ids := range owners {
		for _, a := range ids {
			for _, b := range ids {
				if a != b {
					neighborSets[a][b] = struct{}{}
				}
			}
		}
	}

	out := make([][]int, len(polys))
	for i, set := range neighborSets {
		for j := range set {
			out[i] = append(out[i], j)
		}
		sort.Ints(out[i])
	}
	return out
}

// Touches reports whether two polygons share at least one boundary vertex.
func Touches(a, b orb.Polygon) bool {
	seen := make(map[vertexKey]struct{})
	for _, ring := range a {
		for _, pt := range ring {
			seen[quantize(pt)] = struct{}{}
		}
	}
	for _, ring := range b {
		for _, pt := range ring {
			if _, ok := seen[quantize(pt)]; ok {
				return true
			}
		}
	}
	return false
}

// Centroid returns the area-weighted centroid of a polygon.
func Centroid(p orb.Polygon) orb.Point {
	c, _ := planar.CentroidArea(p)
	return c
}

// ContainsPoint reports whether the polygon contains the point.
func ContainsPoint(p orb.Polygon, pt orb.Point) bool {
	return planar.PolygonContains(p, pt)
}

// MultiPolygonContains reports whether any part of the multipolygon contains
// the point.
func MultiPolygonContains(mp orb.MultiPolygon, pt orb.Point) bool {
	return planar.MultiPolygonContains(mp, pt)
}
