package sim

import (
	"errors"
	"sort"
	"time"
)

// ErrUnknownSelector is returned when a scenario names a selector strategy
// the engine does not register.
var ErrUnknownSelector = errors.New("unknown selector strategy")

// Candidate is a substitute resource offered to a selector. Callers supply
// candidates pre-filtered for feasibility (location, type, tolerance) and in
// ascending id order.
type Candidate struct {
	ID          string
	AvailableAt time.Time
}

// Selector is a named substitution strategy. The set of strategies is closed:
// every implementation lives in this file and registers at init time, so
// scenario configuration cannot inject behavior the tests have not seen.
type Selector interface {
	Name() string

	// Pick chooses one candidate. Returns false when the slice is empty.
	// Implementations must be deterministic for a given candidate slice.
	Pick(cands []Candidate) (Candidate, bool)
}

var selectors = map[string]Selector{}

func registerSelector(s Selector) {
	selectors[s.Name()] = s
}

func init() {
	registerSelector(dfsSelector{})
	registerSelector(earliestSelector{})
}

// LookupSelector resolves a strategy by name. The empty name resolves to the
// default strategy.
func LookupSelector(name string) (Selector, bool) {
	if name == "" {
		return earliestSelector{}, true
	}
	s, ok := selectors[name]
	return s, ok
}

// SelectorNames returns the registered strategy names, sorted.
func SelectorNames() []string {
	names := make([]string, 0, len(selectors))
	for name := range selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// dfsSelector is an exhaustive depth-first scan over candidates in ascending
// id order: the first feasible candidate wins. Since callers pre-filter for
// feasibility, that is simply the lowest id.
type dfsSelector struct{}

func (dfsSelector) Name() string { return "dfs" }

func (dfsSelector) Pick(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.ID < best.ID {
			best = c
		}
	}
	return best, true
}

// earliestSelector picks the candidate that becomes available soonest,
// breaking ties by ascending id. This is the engine default.
type earliestSelector struct{}

func (earliestSelector) Name() string { return "earliest" }

func (earliestSelector) Pick(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.AvailableAt.Before(best.AvailableAt) ||
			(c.AvailableAt.Equal(best.AvailableAt) && c.ID < best.ID) {
			best = c
		}
	}
	return best, true
}
