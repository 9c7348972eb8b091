package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// SquareFeetPerSquareMile converts projected areas in square feet to square
// miles (5280 * 5280).
const SquareFeetPerSquareMile = 27878400.0

// metersToUSFeet is the US survey foot conversion (1 ft = 1200/3937 m).
const metersToUSFeet = 3937.0 / 1200.0

// Projection is a Lambert conformal conic projection on the GRS80 ellipsoid.
// Areas must never be computed in geographic degrees; geometries are run
// through a Projection first.
type Projection struct {
	Name string

	// Defining parameters, degrees.
	StdParallel1 float64
	StdParallel2 float64
	LatOrigin    float64
	LonOrigin    float64

	// False easting/northing, meters.
	FalseEasting  float64
	FalseNorthing float64

	// Derived constants, computed once.
	n, f, rho0 float64
	ready      bool
}

// NCStatePlane is NAD83 / North Carolina (EPSG:2264 parameters). Projected
// coordinates come out in US survey feet.
var NCStatePlane = &Projection{
	Name:          "NAD83 / North Carolina (ft)",
	StdParallel1:  34.0 + 20.0/60.0,
	StdParallel2:  36.0 + 10.0/60.0,
	LatOrigin:     33.75,
	LonOrigin:     -79.0,
	FalseEasting:  609601.22,
	FalseNorthing: 0,
}

// GRS80 ellipsoid.
const (
	semiMajor    = 6378137.0
	flattening   = 1.0 / 298.257222101
	eccentricity = 0.0818191910428158 // sqrt(2f - f^2)
)

func lccM(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-eccentricity*eccentricity*s*s)
}

func lccT(phi float64) float64 {
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) /
		math.Pow((1-eccentricity*s)/(1+eccentricity*s), eccentricity/2)
}

func (p *Projection) init() {
	if p.ready {
		return
	}
	phi1 := p.StdParallel1 * math.Pi / 180
	phi2 := p.StdParallel2 * math.Pi / 180
	phi0 := p.LatOrigin * math.Pi / 180

	m1, m2 := lccM(phi1), lccM(phi2)
	t1, t2 := lccT(phi1), lccT(phi2)
	t0 := lccT(phi0)

	p.n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	p.f = m1 / (p.n * math.Pow(t1, p.n))
	p.rho0 = semiMajor * p.f * math.Pow(t0, p.n)
	p.ready = true
}

// Forward projects a geographic lon-lat point to projected feet.
func (p *Projection) Forward(pt orb.Point) orb.Point {
	p.init()
	phi := pt[1] * math.Pi / 180
	lam := pt[0] * math.Pi / 180
	lam0 := p.LonOrigin * math.Pi / 180

	rho := semiMajor * p.f * math.Pow(lccT(phi), p.n)
	theta := p.n * (lam - lam0)

	east := p.FalseEasting + rho*math.Sin(theta)
	north := p.FalseNorthing + p.rho0 - rho*math.Cos(theta)
	return orb.Point{east * metersToUSFeet, north * metersToUSFeet}
}

// ProjectPolygon projects every vertex of a polygon.
func (p *Projection) ProjectPolygon(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		r := make(orb.Ring, len(ring))
		for j, pt := range ring {
			r[j] = p.Forward(pt)
		}
		out[i] = r
	}
	return out
}

// AreaSquareMiles projects a multi-part geometry and returns its area in
// square miles.
func (p *Projection) AreaSquareMiles(mp orb.MultiPolygon) float64 {
	var sqft float64
	for _, poly := range mp {
		sqft += math.Abs(planar.Area(p.ProjectPolygon(poly)))
	}
	return sqft / SquareFeetPerSquareMile
}
