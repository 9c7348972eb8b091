// Package voter loads geocoded voter registration records, scores voting
// recency into MECE categories, and tallies voters onto census blocks.
package voter

import "github.com/paulmach/orb"

// Voter is one geocoded registration record with its MECE score and, after
// block tagging, the census block containing it.
type Voter struct {
	ID        string `json:"id"` // ncid
	RegNum    string `json:"reg_num"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Race      string `json:"race"` // SBE race code, "B" = Black
	Gender    string `json:"gender"`
	Age       int    `json:"age"`

	Address  string `json:"address"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Precinct string `json:"precinct"`

	Point orb.Point `json:"-"`
	MECE  int       `json:"mece"`

	// Set by TagBlocks.
	BlockID       string  `json:"block_id,omitempty"`
	BlockPctBlack float64 `json:"block_pct_black,omitempty"`
}

// Eligible reports whether the voter counts toward turf tallies: a Black
// voter living in a majority-Black block. This subset is the canonical
// voter-eligible population for turf assignment.
func (v Voter) Eligible() bool {
	return v.Race == "B" && v.BlockPctBlack >= 50
}
