package turf

import (
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/johnpfay/WakeVoter/internal/block"
	"github.com/johnpfay/WakeVoter/internal/geometry"
	"github.com/johnpfay/WakeVoter/internal/voter"
)

// ErrNoTurfs is returned when assembly has nothing to emit: no block in the
// county survived classification and clustering. Callers decide whether
// that is an error or an expected empty geography.
var ErrNoTurfs = eris.New("turf: no turfs producible")

// Assembler merges the three turf tiers, assigns randomized ids, and
// computes derived attributes.
type Assembler struct {
	// Seed drives the random id permutation; runs with the same seed and
	// input produce identical ids.
	Seed int64
	// Projection converts geographic geometry to a planar system before
	// any area is measured.
	Projection *geometry.Projection
}

// Assemble builds final turfs from standalone blocks (tier 1), accepted
// first-pass clusters (tier 2), and split sub-clusters (tier 3), then tags
// voters. Ids are assigned by a seeded permutation of [1..N] so they carry
// no positional or geographic signal.
func (a Assembler) Assemble(standalone []block.AreaUnit, accepted, split []Cluster, voters []voter.Voter) ([]Turf, []Assignment, error) {
	proj := a.Projection
	if proj == nil {
		proj = geometry.NCStatePlane
	}

	sortClusters(accepted)
	sortClusters(split)

	var turfs []Turf
	for _, u := range standalone {
		turfs = append(turfs, Turf{
			OrgType:         OrgTypeBlock,
			MemberIDs:       []string{u.ID},
			Geometry:        geometry.NewShape(u.Geometry).MultiPolygon(),
			BlackHH:         u.BlackHH,
			Population:      u.Population,
			BlackPopulation: u.BlackPopulation,
			PctBlack:        u.PctBlack,
		})
	}
	for _, c := range append(append([]Cluster{}, accepted...), split...) {
		turfs = append(turfs, Turf{
			OrgType:         OrgTypeAggregate,
			MemberIDs:       c.MemberIDs,
			Geometry:        c.Geometry(),
			BlackHH:         c.BlackHH,
			Population:      c.Population,
			BlackPopulation: c.BlackPopulation,
			PctBlack:        c.PctBlack,
		})
	}

	n := len(turfs)
	if n == 0 {
		return nil, nil, ErrNoTurfs
	}

	perm := rand.New(rand.NewSource(a.Seed)).Perm(n)
	for i := range turfs {
		turfs[i].RandomID = perm[i] + 1
		turfs[i].AreaSqMiles = proj.AreaSquareMiles(turfs[i].Geometry)
	}

	assignments, byTurf := Assign(turfs, voters)
	for i := range turfs {
		contained := byTurf[turfs[i].RandomID]
		turfs[i].Precinct = mode(contained, func(v voter.Voter) string { return v.Precinct })
		turfs[i].City = mode(contained, func(v voter.Voter) string { return v.City })

		// Tallies come from the eligible subset only, not the full
		// census-block tallies the blocks carried in.
		var t block.MECETally
		for _, v := range contained {
			if v.Eligible() {
				t.Bump(v.MECE)
			}
		}
		turfs[i].Tally = t
		turfs[i].RegisteredBlack = t.Total
	}

	sort.Slice(turfs, func(i, j int) bool { return turfs[i].RandomID < turfs[j].RandomID })

	zap.L().Info("turfs assembled",
		zap.String("component", "turf.assemble"),
		zap.Int("standalone", len(standalone)),
		zap.Int("aggregates", len(accepted)),
		zap.Int("split_aggregates", len(split)),
		zap.Int("turfs", n),
		zap.Int("assigned_voters", len(assignments)),
	)
	return turfs, assignments, nil
}

// mode returns the most frequent non-empty value; ties break to the
// lexicographically smallest so the result is deterministic.
func mode(voters []voter.Voter, key func(voter.Voter) string) string {
	counts := make(map[string]int)
	for _, v := range voters {
		if k := key(v); k != "" {
			counts[k]++
		}
	}
	best, bestCount := "", 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}
