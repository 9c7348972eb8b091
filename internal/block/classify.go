package block

// Demographic thresholds for turf eligibility.
const (
	// MajorityPctBlack is the minimum Black population percentage for a
	// block to participate in turf building at all.
	MajorityPctBlack = 50.0

	// StandaloneMinBHH is the Black-household count above which an eligible
	// block stands alone as its own turf. The comparison is a strict
	// greater-than: a block with exactly 50 BHH goes to aggregation.
	StandaloneMinBHH = 50

	// AggregateMinBHH is the minimum Black-household count for an accepted
	// aggregate; aggregates below it are discarded as impractical.
	AggregateMinBHH = 50

	// AggregateTargetBHH is the soft upper bound for an aggregate; growth
	// stops once it is reached.
	AggregateTargetBHH = 100
)

// Class is the routing decision for a single block.
type Class int

const (
	// Ineligible blocks are not majority Black and take no part in turfs.
	Ineligible Class = iota
	// Standalone blocks are majority Black with more than 50 BHH; each
	// becomes a turf on its own.
	Standalone
	// NeedsAggregation blocks are majority Black with 50 or fewer BHH and
	// must be clustered with neighbors.
	NeedsAggregation
)

func (c Class) String() string {
	switch c {
	case Standalone:
		return "standalone"
	case NeedsAggregation:
		return "needs-aggregation"
	default:
		return "ineligible"
	}
}

// Classify routes a block:
//   - ineligible: PctBlack < 50
//   - standalone: PctBlack >= 50 and BlackHH > 50
//   - needs-aggregation: PctBlack >= 50 and BlackHH <= 50
//
// Pure and total; no side effects.
func Classify(u AreaUnit) Class {
	if u.PctBlack < MajorityPctBlack {
		return Ineligible
	}
	if u.BlackHH > StandaloneMinBHH {
		return Standalone
	}
	return NeedsAggregation
}
