package turf

import (
	"sort"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/johnpfay/WakeVoter/internal/block"
	"github.com/johnpfay/WakeVoter/internal/geometry"
)

// unionFind is a standard disjoint-set with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[rb] = ra
	}
}

// ClusterResult routes first-pass clusters by aggregate Black-household
// count.
type ClusterResult struct {
	Accepted  []Cluster // 50 <= BHH <= 100, final as-is
	Oversized []Cluster // BHH > 100, go to the splitter
	Discarded []Cluster // BHH < 50, dropped as impractical
}

// BuildClusters merges adjacent undersized eligible blocks into contiguous
// first-pass clusters (connected components of the touches graph) and
// routes each by its aggregate BHH. Input order does not matter; component
// membership and output order are deterministic.
func BuildClusters(units []block.AreaUnit) ClusterResult {
	sorted := make([]block.AreaUnit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	polys := make([]orb.Polygon, len(sorted))
	for i, u := range sorted {
		polys[i] = u.Geometry
	}

	adj := geometry.Adjacency(polys)
	uf := newUnionFind(len(sorted))
	for i, neighbors := range adj {
		for _, j := range neighbors {
			uf.union(i, j)
		}
	}

	members := make(map[int][]block.AreaUnit)
	for i, u := range sorted {
		root := uf.find(i)
		members[root] = append(members[root], u)
	}

	roots := make([]int, 0, len(members))
	for root := range members {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	log := zap.L().With(zap.String("component", "turf.cluster"))

	var res ClusterResult
	for _, root := range roots {
		c := Aggregate(members[root])
		switch {
		case c.BlackHH < block.AggregateMinBHH:
			log.Debug("discarding undersized cluster",
				zap.String("cluster", c.MemberIDs[0]),
				zap.Int("blocks", len(c.MemberIDs)),
				zap.Int("black_hh", c.BlackHH),
			)
			res.Discarded = append(res.Discarded, c)
		case c.BlackHH > block.AggregateTargetBHH:
			res.Oversized = append(res.Oversized, c)
		default:
			res.Accepted = append(res.Accepted, c)
		}
	}

	log.Info("first-pass clustering complete",
		zap.Int("blocks", len(sorted)),
		zap.Int("accepted", len(res.Accepted)),
		zap.Int("oversized", len(res.Oversized)),
		zap.Int("discarded", len(res.Discarded)),
	)
	return res
}
