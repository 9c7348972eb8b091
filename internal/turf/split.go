package turf

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/johnpfay/WakeVoter/internal/block"
	"github.com/johnpfay/WakeVoter/internal/geometry"
)

// Iteration caps for the splitter. Hitting a cap is reportable but never
// fatal; the partial result still goes through the normal acceptance rule.
const (
	growthStepCap = 100 // inner growth steps per sub-cluster
	claimLoopCap  = 100 // outer seed/claim iterations per oversized cluster
)

// GrowthOutcome is the terminal state of one seeded growth pass.
type GrowthOutcome int

const (
	// Converged means the growth reached the target BHH.
	Converged GrowthOutcome = iota
	// Exhausted means no unclaimed neighbor remained before the target was
	// reached; the remainder of the cluster is too small or disconnected.
	Exhausted
	// Capped means the growth hit its step cap without reaching the target.
	Capped
)

func (o GrowthOutcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	default:
		return "capped"
	}
}

// Warning records a non-convergence event, tied to the oversized cluster it
// came from. Warnings are reported, never thrown.
type Warning struct {
	ClusterID string `json:"cluster_id"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
}

// SplitResult holds the sub-clusters carved out of one or more oversized
// clusters.
type SplitResult struct {
	SubClusters []Cluster
	Discarded   []Cluster
	Warnings    []Warning
}

// Split decomposes an oversized cluster into sub-clusters of roughly 50-100
// BHH by greedy seeded growth:
//
//  1. Seed on the westernmost unclaimed block (minimum centroid X; ties
//     break on centroid Y, then block id) so identical input always yields
//     identical output.
//  2. Grow the accumulated shape by unioning in every unclaimed member that
//     touches it, until the running BHH reaches the target or a cap hits.
//  3. Claim every unclaimed block whose centroid lies inside the final
//     shape. This also picks up enclosed blocks the union swept past.
//  4. Accept the claimed set as a sub-cluster if it has at least 50 BHH,
//     otherwise discard it.
//
// The loop repeats until no unclaimed blocks remain or the outer cap hits.
func Split(c Cluster) SplitResult {
	n := len(c.Units)
	centroids := make([]orb.Point, n)
	for i, u := range c.Units {
		centroids[i] = geometry.Centroid(u.Geometry)
	}

	clusterID := ""
	if n > 0 {
		clusterID = c.MemberIDs[0]
	}
	log := zap.L().With(
		zap.String("component", "turf.split"),
		zap.String("cluster", clusterID),
	)

	claimed := make([]bool, n)
	unclaimed := n

	var res SplitResult
	for iter := 0; unclaimed > 0; iter++ {
		if iter >= claimLoopCap {
			res.Warnings = append(res.Warnings, Warning{
				ClusterID: clusterID,
				Stage:     "claim",
				Message:   fmt.Sprintf("claim loop capped at %d iterations with %d blocks unclaimed", claimLoopCap, unclaimed),
			})
			log.Warn("claim loop capped", zap.Int("unclaimed", unclaimed))
			break
		}

		seed := seedIndex(c.Units, centroids, claimed)
		shape := geometry.NewShape(c.Units[seed].Geometry)
		bhh := c.Units[seed].BlackHH
		inShape := map[int]bool{seed: true}

		outcome := grow(c, shape, claimed, inShape, &bhh)
		if outcome != Converged {
			res.Warnings = append(res.Warnings, Warning{
				ClusterID: clusterID,
				Stage:     "grow",
				Message:   fmt.Sprintf("growth %s at %d BHH (target %d)", outcome, bhh, block.AggregateTargetBHH),
			})
		}

		// Claim by centroid containment, not membership of the union: an
		// enclosed block whose neighbors were all unioned in belongs to
		// this sub-cluster too. The seed is claimed unconditionally.
		var members []block.AreaUnit
		for i, u := range c.Units {
			if claimed[i] {
				continue
			}
			if i == seed || shape.ContainsPoint(centroids[i]) {
				claimed[i] = true
				unclaimed--
				members = append(members, u)
			}
		}

		sub := Aggregate(members)
		if sub.BlackHH >= block.AggregateMinBHH {
			res.SubClusters = append(res.SubClusters, sub)
		} else {
			log.Debug("discarding undersized sub-cluster",
				zap.Int("blocks", len(members)),
				zap.Int("black_hh", sub.BlackHH),
			)
			res.Discarded = append(res.Discarded, sub)
		}
	}

	return res
}

// seedIndex picks the unclaimed unit with the minimum centroid X,
// tie-breaking on centroid Y and then id.
func seedIndex(units []block.AreaUnit, centroids []orb.Point, claimed []bool) int {
	best := -1
	for i := range units {
		if claimed[i] {
			continue
		}
		if best < 0 || less(centroids[i], units[i].ID, centroids[best], units[best].ID) {
			best = i
		}
	}
	return best
}

func less(ca orb.Point, ida string, cb orb.Point, idb string) bool {
	if ca[0] != cb[0] {
		return ca[0] < cb[0]
	}
	if ca[1] != cb[1] {
		return ca[1] < cb[1]
	}
	return ida < idb
}

// grow expands the shape one adjacency frontier at a time until the running
// BHH reaches the target or the pass terminates. Only unclaimed members not
// already in the shape are considered.
func grow(c Cluster, shape *geometry.Shape, claimed []bool, inShape map[int]bool, bhh *int) GrowthOutcome {
	for step := 0; *bhh < block.AggregateTargetBHH; step++ {
		if step >= growthStepCap {
			return Capped
		}

		grew := false
		for i, u := range c.Units {
			if claimed[i] || inShape[i] {
				continue
			}
			if shape.Touches(u.Geometry) {
				shape.Add(u.Geometry)
				inShape[i] = true
				*bhh += u.BlackHH
				grew = true
			}
		}
		if !grew {
			return Exhausted
		}
	}
	return Converged
}

// SplitAll splits every oversized cluster. Clusters are independent, so the
// work fans out across a bounded worker group; results keep the input
// cluster order.
func SplitAll(ctx context.Context, oversized []Cluster) (SplitResult, error) {
	results := make([]SplitResult, len(oversized))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range oversized {
		g.Go(func() error {
			results[i] = Split(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SplitResult{}, err
	}

	var merged SplitResult
	for _, r := range results {
		merged.SubClusters = append(merged.SubClusters, r.SubClusters...)
		merged.Discarded = append(merged.Discarded, r.Discarded...)
		merged.Warnings = append(merged.Warnings, r.Warnings...)
	}
	return merged, nil
}

// sortClusters orders clusters by their first member id. Used by callers
// that need a stable order after parallel work.
func sortClusters(cs []Cluster) {
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].MemberIDs[0] < cs[j].MemberIDs[0]
	})
}
