// Package block holds the immutable census-block units the turf pipeline
// consumes: geometry, decennial race counts, and derived household metrics.
package block

import (
	"math"

	"github.com/paulmach/orb"
)

// MECETally counts registered voters in a block by MECE recency category.
type MECETally struct {
	MECE1 int `json:"mece1"`
	MECE2 int `json:"mece2"`
	MECE3 int `json:"mece3"`
	MECE4 int `json:"mece4"`
	MECE5 int `json:"mece5"`
	Total int `json:"total"`
}

// Add accumulates another tally into this one.
func (t *MECETally) Add(o MECETally) {
	t.MECE1 += o.MECE1
	t.MECE2 += o.MECE2
	t.MECE3 += o.MECE3
	t.MECE4 += o.MECE4
	t.MECE5 += o.MECE5
	t.Total += o.Total
}

// Bump increments the bucket for a single MECE score.
func (t *MECETally) Bump(score int) {
	switch score {
	case 1:
		t.MECE1++
	case 2:
		t.MECE2++
	case 3:
		t.MECE3++
	case 4:
		t.MECE4++
	default:
		t.MECE5++
	}
	t.Total++
}

// AreaUnit is a census block with geometry and demographic attributes.
// Units are constructed once and read-only afterward; re-tallying replaces
// the unit wholesale via WithTally.
type AreaUnit struct {
	ID       string      `json:"id"` // GEOID10
	Geometry orb.Polygon `json:"-"`

	Population        int `json:"population"`          // P003001
	BlackPopulation   int `json:"black_population"`    // P003003
	Population18      int `json:"population_18"`       // P010001
	BlackPopulation18 int `json:"black_population_18"` // P010004
	HousingUnits      int `json:"housing_units"`       // HOUSING10

	PctBlack   float64 `json:"pct_black"`
	PctBlack18 float64 `json:"pct_black_18"`
	BlackHH    int     `json:"black_hh"`

	Tally MECETally `json:"mece_tally"`
}

// Pct returns numerator/denominator as a percentage, 0 when the denominator
// is 0 (a data-quality case, not an error).
func Pct(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// New builds an AreaUnit and computes its derived fields. BlackHH is the
// estimated count of Black households: housing units scaled by the Black
// population share, rounded to the nearest integer.
func New(id string, geometry orb.Polygon, pop, blackPop, pop18, blackPop18, housing int) AreaUnit {
	u := AreaUnit{
		ID:                id,
		Geometry:          geometry,
		Population:        pop,
		BlackPopulation:   blackPop,
		Population18:      pop18,
		BlackPopulation18: blackPop18,
		HousingUnits:      housing,
	}
	u.PctBlack = Pct(blackPop, pop)
	u.PctBlack18 = Pct(blackPop18, pop18)
	u.BlackHH = int(math.Round(float64(housing) * u.PctBlack / 100))
	return u
}

// WithTally returns a copy of the unit carrying the given voter tally.
func (u AreaUnit) WithTally(t MECETally) AreaUnit {
	u.Tally = t
	return u
}
