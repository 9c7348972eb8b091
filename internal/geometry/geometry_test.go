package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y float64) orb.Polygon {
	return orb.Polygon{{
		{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y},
	}}
}

func TestAdjacencyRow(t *testing.T) {
	// Three unit squares in a row: 0-1 and 1-2 share an edge, 0-2 share
	// nothing.
	adj := Adjacency([]orb.Polygon{square(0, 0), square(1, 0), square(2, 0)})

	assert.Equal(t, []int{1}, adj[0])
	assert.Equal(t, []int{0, 2}, adj[1])
	assert.Equal(t, []int{1}, adj[2])
}

func TestAdjacencyCornerTouch(t *testing.T) {
	// Diagonal squares share only the corner vertex; that still counts.
	adj := Adjacency([]orb.Polygon{square(0, 0), square(1, 1)})
	assert.Equal(t, []int{1}, adj[0])
	assert.Equal(t, []int{0}, adj[1])
}

func TestAdjacencyDisjoint(t *testing.T) {
	adj := Adjacency([]orb.Polygon{square(0, 0), square(5, 5)})
	assert.Empty(t, adj[0])
	assert.Empty(t, adj[1])
}

func TestTouchesQuantization(t *testing.T) {
	a := square(0, 0)
	// Same boundary written with float noise below the quantum.
	b := orb.Polygon{{
		{1 + 1e-13, 0}, {2, 0}, {2, 1}, {1, 1 - 1e-13}, {1 + 1e-13, 0},
	}}
	assert.True(t, Touches(a, b))
}

func TestShapeGrowth(t *testing.T) {
	s := NewShape(square(0, 0))

	assert.True(t, s.Touches(square(1, 0)))
	assert.False(t, s.Touches(square(3, 0)))

	s.Add(square(1, 0))
	// Touching the newly added part now counts.
	assert.True(t, s.Touches(square(2, 0)))
	assert.Len(t, s.Parts(), 2)
	assert.Len(t, s.MultiPolygon(), 2)
}

func TestShapeContainsPoint(t *testing.T) {
	s := NewShape(square(0, 0), square(2, 0))

	assert.True(t, s.ContainsPoint(orb.Point{0.5, 0.5}))
	assert.True(t, s.ContainsPoint(orb.Point{2.5, 0.5}))
	assert.False(t, s.ContainsPoint(orb.Point{1.5, 0.5}))
}

func TestCentroid(t *testing.T) {
	c := Centroid(square(0, 0))
	assert.InDelta(t, 0.5, c[0], 1e-9)
	assert.InDelta(t, 0.5, c[1], 1e-9)
}

func TestContainsPoint(t *testing.T) {
	p := square(0, 0)
	assert.True(t, ContainsPoint(p, orb.Point{0.5, 0.5}))
	assert.False(t, ContainsPoint(p, orb.Point{1.5, 0.5}))

	mp := orb.MultiPolygon{square(0, 0), square(2, 0)}
	assert.True(t, MultiPolygonContains(mp, orb.Point{2.5, 0.5}))
	assert.False(t, MultiPolygonContains(mp, orb.Point{1.5, 0.5}))
}

func TestEWKBRoundTrip(t *testing.T) {
	mp := orb.MultiPolygon{
		square(0, 0),
		{
			{{2, 0}, {4, 0}, {4, 2}, {2, 2}, {2, 0}},
			{{2.5, 0.5}, {3.5, 0.5}, {3.5, 1.5}, {2.5, 1.5}, {2.5, 0.5}}, // hole
		},
	}

	data, err := EncodeEWKB(mp)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := DecodeEWKB(data)
	require.NoError(t, err)
	assert.Equal(t, mp, got)
}
