package block

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Store is the immutable set of census blocks for one county. Iteration
// order is by block id so every downstream step is deterministic.
type Store struct {
	units []AreaUnit
	byID  map[string]int
}

// NewStore builds a store from units, sorted by id. Duplicate ids are
// rejected.
func NewStore(units []AreaUnit) (*Store, error) {
	sorted := make([]AreaUnit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[string]int, len(sorted))
	for i, u := range sorted {
		if _, dup := byID[u.ID]; dup {
			return nil, eris.Errorf("block: duplicate block id %s", u.ID)
		}
		byID[u.ID] = i
	}
	return &Store{units: sorted, byID: byID}, nil
}

// Get returns the unit with the given id.
func (s *Store) Get(id string) (AreaUnit, bool) {
	i, ok := s.byID[id]
	if !ok {
		return AreaUnit{}, false
	}
	return s.units[i], true
}

// All returns the units in id order. Callers must not mutate the slice.
func (s *Store) All() []AreaUnit {
	return s.units
}

// Len returns the number of units.
func (s *Store) Len() int {
	return len(s.units)
}

// Select returns the units for which keep returns true, in id order.
func (s *Store) Select(keep func(AreaUnit) bool) []AreaUnit {
	var out []AreaUnit
	for _, u := range s.units {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}

// Partition splits the store's units by class.
func (s *Store) Partition() (standalone, needsAgg, ineligible []AreaUnit) {
	for _, u := range s.units {
		switch Classify(u) {
		case Standalone:
			standalone = append(standalone, u)
		case NeedsAggregation:
			needsAgg = append(needsAgg, u)
		default:
			ineligible = append(ineligible, u)
		}
	}
	return standalone, needsAgg, ineligible
}
