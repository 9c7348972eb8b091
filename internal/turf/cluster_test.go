package turf

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnpfay/WakeVoter/internal/block"
)

// unit builds an all-Black block at grid position x with the given number
// of housing units, so BlackHH equals housing.
func unit(id string, x float64, housing int) block.AreaUnit {
	geom := orb.Polygon{{
		{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0},
	}}
	return block.New(id, geom, 100, 100, 80, 80, housing)
}

func TestBuildClustersAcceptsAdjacentPair(t *testing.T) {
	res := BuildClusters([]block.AreaUnit{
		unit("b1", 0, 30),
		unit("b2", 1, 30),
	})

	require.Len(t, res.Accepted, 1)
	assert.Empty(t, res.Oversized)
	assert.Empty(t, res.Discarded)

	c := res.Accepted[0]
	assert.Equal(t, []string{"b1", "b2"}, c.MemberIDs)
	assert.Equal(t, 60, c.BlackHH)
	assert.Equal(t, 200, c.Population)
	assert.InDelta(t, 100.0, c.PctBlack, 1e-9)
}

func TestBuildClustersDiscardsIsolatedUndersized(t *testing.T) {
	res := BuildClusters([]block.AreaUnit{
		unit("b1", 0, 30),
		unit("b2", 1, 30),
		unit("b9", 10, 5), // isolated, 5 BHH
	})

	require.Len(t, res.Accepted, 1)
	require.Len(t, res.Discarded, 1)
	assert.Equal(t, []string{"b9"}, res.Discarded[0].MemberIDs)
}

func TestBuildClustersRoutesOversized(t *testing.T) {
	res := BuildClusters([]block.AreaUnit{
		unit("b1", 0, 30),
		unit("b2", 1, 30),
		unit("b3", 2, 30),
		unit("b4", 3, 30),
	})

	assert.Empty(t, res.Accepted)
	require.Len(t, res.Oversized, 1)
	assert.Equal(t, 120, res.Oversized[0].BlackHH)
	assert.Len(t, res.Oversized[0].MemberIDs, 4)
}

func TestBuildClustersKeepsComponentsSeparate(t *testing.T) {
	// Two pairs with a gap between them: two clusters, not one.
	res := BuildClusters([]block.AreaUnit{
		unit("b1", 0, 30),
		unit("b2", 1, 30),
		unit("b3", 5, 30),
		unit("b4", 6, 30),
	})

	require.Len(t, res.Accepted, 2)
	assert.Equal(t, []string{"b1", "b2"}, res.Accepted[0].MemberIDs)
	assert.Equal(t, []string{"b3", "b4"}, res.Accepted[1].MemberIDs)
}

func TestBuildClustersInputOrderIrrelevant(t *testing.T) {
	units := []block.AreaUnit{
		unit("b1", 0, 30),
		unit("b2", 1, 30),
		unit("b3", 2, 10),
	}
	forward := BuildClusters(units)
	reversed := BuildClusters([]block.AreaUnit{units[2], units[0], units[1]})

	require.Len(t, forward.Accepted, 1)
	require.Len(t, reversed.Accepted, 1)
	assert.Equal(t, forward.Accepted[0].MemberIDs, reversed.Accepted[0].MemberIDs)
	assert.Equal(t, forward.Accepted[0].BlackHH, reversed.Accepted[0].BlackHH)
}

func TestBuildClustersEmpty(t *testing.T) {
	res := BuildClusters(nil)
	assert.Empty(t, res.Accepted)
	assert.Empty(t, res.Oversized)
	assert.Empty(t, res.Discarded)
}

func TestAggregateSums(t *testing.T) {
	a := unit("b2", 1, 20)
	b := unit("b1", 0, 40)
	a = a.WithTally(block.MECETally{MECE1: 3, Total: 3})
	b = b.WithTally(block.MECETally{MECE2: 4, Total: 4})

	c := Aggregate([]block.AreaUnit{a, b})

	assert.Equal(t, []string{"b1", "b2"}, c.MemberIDs)
	assert.Equal(t, 60, c.BlackHH)
	assert.Equal(t, 3, c.Tally.MECE1)
	assert.Equal(t, 4, c.Tally.MECE2)
	assert.Equal(t, 7, c.Tally.Total)
	assert.Len(t, c.Geometry(), 2)
}
