package voter

// MECE scores classify voting recency 1 (most recent) through 5 (none).
// Each election of interest maps to the score a voter earns by having
// participated in it; the best (lowest) earned score wins.
const (
	MECEMin = 1
	MECEMax = 5
)

// DefaultElections maps NC SBE election labels to MECE scores: the 2017
// municipal elections score 1, then Nov 2018, Nov 2016, and Nov 2012.
var DefaultElections = map[string]int{
	"10/10/2017": 1,
	"11/07/2017": 1,
	"11/06/2018": 2,
	"11/08/2016": 3,
	"11/06/2012": 4,
}

// Score returns the MECE category for a voter given the election labels
// they participated in. Voters with no qualifying participation (including
// no history at all) score 5.
func Score(participated []string, elections map[string]int) int {
	best := MECEMax
	for _, label := range participated {
		if s, ok := elections[label]; ok && s < best {
			best = s
		}
	}
	return best
}
