package turf

import (
	"github.com/paulmach/orb"

	"github.com/johnpfay/WakeVoter/internal/geometry"
	"github.com/johnpfay/WakeVoter/internal/voter"
)

// Assign spatially joins voter points to the turfs containing them. Each
// voter lands in at most one turf; turf geometries are disjoint, so the
// first containing turf is the only one. Returns the assignment table and
// the voters grouped by turf id.
func Assign(turfs []Turf, voters []voter.Voter) ([]Assignment, map[int][]voter.Voter) {
	bounds := make([]orb.Bound, len(turfs))
	for i, t := range turfs {
		bounds[i] = t.Geometry.Bound()
	}

	var assignments []Assignment
	byTurf := make(map[int][]voter.Voter)
	for _, v := range voters {
		for i, t := range turfs {
			if !bounds[i].Contains(v.Point) {
				continue
			}
			if geometry.MultiPolygonContains(t.Geometry, v.Point) {
				assignments = append(assignments, Assignment{VoterID: v.ID, RandomID: t.RandomID})
				byTurf[t.RandomID] = append(byTurf[t.RandomID], v)
				break
			}
		}
	}
	return assignments, byTurf
}
