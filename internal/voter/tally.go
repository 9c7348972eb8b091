package voter

import (
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/johnpfay/WakeVoter/internal/block"
	"github.com/johnpfay/WakeVoter/internal/geometry"
)

// TagBlocks assigns each voter the census block containing their residence
// point, along with the block's percent-Black value. Voters falling outside
// every block keep an empty BlockID; the count is logged.
func TagBlocks(voters []Voter, blocks *block.Store) []Voter {
	units := blocks.All()
	bounds := make([]orb.Bound, len(units))
	for i, u := range units {
		bounds[i] = u.Geometry.Bound()
	}

	out := make([]Voter, len(voters))
	untagged := 0
	for i, v := range voters {
		out[i] = v
		out[i].BlockID = ""
		out[i].BlockPctBlack = 0
		for j, u := range units {
			if !bounds[j].Contains(v.Point) {
				continue
			}
			if geometry.ContainsPoint(u.Geometry, v.Point) {
				out[i].BlockID = u.ID
				out[i].BlockPctBlack = u.PctBlack
				break
			}
		}
		if out[i].BlockID == "" {
			untagged++
		}
	}

	if untagged > 0 {
		zap.L().Warn("voters outside all blocks",
			zap.String("component", "voter.tally"),
			zap.Int("count", untagged),
		)
	}
	return out
}

// Tallies computes per-block MECE tallies over the eligible subset: Black
// voters in majority-Black blocks. All other voters contribute nothing.
func Tallies(voters []Voter) map[string]block.MECETally {
	out := make(map[string]block.MECETally)
	for _, v := range voters {
		if v.BlockID == "" || !v.Eligible() {
			continue
		}
		t := out[v.BlockID]
		t.Bump(v.MECE)
		out[v.BlockID] = t
	}
	return out
}

// ApplyTallies returns a copy of the block set with each unit's tally
// replaced by the computed one (zero tally where no eligible voters live).
func ApplyTallies(blocks *block.Store, tallies map[string]block.MECETally) []block.AreaUnit {
	out := make([]block.AreaUnit, 0, blocks.Len())
	for _, u := range blocks.All() {
		out = append(out, u.WithTally(tallies[u.ID]))
	}
	return out
}
