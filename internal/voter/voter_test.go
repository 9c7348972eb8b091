package voter

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnpfay/WakeVoter/internal/block"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name         string
		participated []string
		want         int
	}{
		{"no history", nil, 5},
		{"unknown elections only", []string{"03/15/2016", "05/08/2018"}, 5},
		{"single match", []string{"11/08/2016"}, 3},
		{"best wins", []string{"11/06/2012", "11/06/2018", "11/08/2016"}, 2},
		{"municipal 2017 is top", []string{"10/10/2017", "11/06/2018"}, 1},
		{"both 2017 dates score one", []string{"11/07/2017"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.participated, DefaultElections))
		})
	}
}

func TestScoreCustomElections(t *testing.T) {
	elections := map[string]int{"11/05/2024": 1}
	assert.Equal(t, 1, Score([]string{"11/05/2024"}, elections))
	assert.Equal(t, 5, Score([]string{"11/06/2018"}, elections))
}

func TestEligible(t *testing.T) {
	assert.True(t, Voter{Race: "B", BlockPctBlack: 50}.Eligible())
	assert.True(t, Voter{Race: "B", BlockPctBlack: 87.5}.Eligible())
	assert.False(t, Voter{Race: "B", BlockPctBlack: 49.9}.Eligible())
	assert.False(t, Voter{Race: "W", BlockPctBlack: 90}.Eligible())
	assert.False(t, Voter{Race: "B"}.Eligible())
}

func blockSquare(id string, x float64, pop, blackPop int) block.AreaUnit {
	geom := orb.Polygon{{
		{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0},
	}}
	return block.New(id, geom, pop, blackPop, pop, blackPop, 40)
}

func TestTagBlocks(t *testing.T) {
	store, err := block.NewStore([]block.AreaUnit{
		blockSquare("b1", 0, 100, 90),
		blockSquare("b2", 1, 100, 10),
	})
	require.NoError(t, err)

	voters := TagBlocks([]Voter{
		{ID: "v1", Point: orb.Point{0.5, 0.5}},
		{ID: "v2", Point: orb.Point{1.5, 0.5}},
		{ID: "v3", Point: orb.Point{5, 5}},
	}, store)

	require.Len(t, voters, 3)
	assert.Equal(t, "b1", voters[0].BlockID)
	assert.InDelta(t, 90.0, voters[0].BlockPctBlack, 1e-9)
	assert.Equal(t, "b2", voters[1].BlockID)
	assert.InDelta(t, 10.0, voters[1].BlockPctBlack, 1e-9)
	assert.Empty(t, voters[2].BlockID)
}

func TestTalliesEligibleOnly(t *testing.T) {
	voters := []Voter{
		{ID: "v1", Race: "B", BlockID: "b1", BlockPctBlack: 90, MECE: 1},
		{ID: "v2", Race: "B", BlockID: "b1", BlockPctBlack: 90, MECE: 3},
		{ID: "v3", Race: "B", BlockID: "b1", BlockPctBlack: 90, MECE: 3},
		{ID: "v4", Race: "W", BlockID: "b1", BlockPctBlack: 90, MECE: 1}, // not Black
		{ID: "v5", Race: "B", BlockID: "b2", BlockPctBlack: 10, MECE: 1}, // minority block
		{ID: "v6", Race: "B", BlockPctBlack: 90, MECE: 1},                // untagged
	}

	tallies := Tallies(voters)
	require.Contains(t, tallies, "b1")
	assert.NotContains(t, tallies, "b2")

	tal := tallies["b1"]
	assert.Equal(t, 1, tal.MECE1)
	assert.Equal(t, 2, tal.MECE3)
	assert.Equal(t, 3, tal.Total)
}

func TestApplyTallies(t *testing.T) {
	store, err := block.NewStore([]block.AreaUnit{
		blockSquare("b1", 0, 100, 90),
		blockSquare("b2", 1, 100, 80),
	})
	require.NoError(t, err)

	units := ApplyTallies(store, map[string]block.MECETally{
		"b1": {MECE2: 4, Total: 4},
	})

	require.Len(t, units, 2)
	assert.Equal(t, 4, units[0].Tally.MECE2)
	assert.Equal(t, 4, units[0].Tally.Total)
	assert.Zero(t, units[1].Tally.Total)
}
