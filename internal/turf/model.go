// Package turf implements the turf-aggregation core: clustering undersized
// majority-Black blocks into contiguous aggregates, splitting oversized
// aggregates, and assembling the final organizational units.
package turf

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/johnpfay/WakeVoter/internal/block"
	"github.com/johnpfay/WakeVoter/internal/geometry"
)

// OrgType tags the origin of a turf.
const (
	OrgTypeBlock     = "block"           // a standalone eligible block
	OrgTypeAggregate = "block aggregate" // a cluster of blocks, whole or split
)

// Cluster is a working aggregate of one or more blocks. Its geometry is
// contiguous by construction; numeric attributes are sums of the members,
// with percentages recomputed from the summed counts rather than averaged.
type Cluster struct {
	MemberIDs []string
	Units     []block.AreaUnit
	Shape     *geometry.Shape

	Population        int
	BlackPopulation   int
	Population18      int
	BlackPopulation18 int
	HousingUnits      int
	BlackHH           int
	PctBlack          float64
	PctBlack18        float64
	Tally             block.MECETally
}

// Aggregate builds a cluster from member units.
func Aggregate(units []block.AreaUnit) Cluster {
	c := Cluster{Shape: geometry.NewShape()}
	for _, u := range units {
		c.MemberIDs = append(c.MemberIDs, u.ID)
		c.Units = append(c.Units, u)
		c.Shape.Add(u.Geometry)
		c.Population += u.Population
		c.BlackPopulation += u.BlackPopulation
		c.Population18 += u.Population18
		c.BlackPopulation18 += u.BlackPopulation18
		c.HousingUnits += u.HousingUnits
		c.BlackHH += u.BlackHH
		c.Tally.Add(u.Tally)
	}
	sort.Strings(c.MemberIDs)
	c.PctBlack = block.Pct(c.BlackPopulation, c.Population)
	c.PctBlack18 = block.Pct(c.BlackPopulation18, c.Population18)
	return c
}

// Geometry returns the cluster's multi-part geometry.
func (c Cluster) Geometry() orb.MultiPolygon {
	return c.Shape.MultiPolygon()
}

// Turf is a final organizational unit. Turfs are terminal: created once by
// the assembler and only read afterward.
type Turf struct {
	RandomID  int              `json:"random_id"`
	OrgType   string           `json:"org_type"`
	MemberIDs []string         `json:"member_ids"`
	Geometry  orb.MultiPolygon `json:"-"`

	Precinct string `json:"precinct"`
	City     string `json:"city"`

	BlackHH         int     `json:"black_hh"`
	Population      int     `json:"total_census_population"`
	BlackPopulation int     `json:"total_census_black_population"`
	PctBlack        float64 `json:"pct_black_census"`
	RegisteredBlack int     `json:"total_black_registered_population"`
	AreaSqMiles     float64 `json:"area_sq_miles"`

	Tally block.MECETally `json:"mece_tally"`
}

// Assignment maps a voter to the turf containing their residence.
type Assignment struct {
	VoterID  string `json:"voter_id"`
	RandomID int    `json:"random_id"`
}
