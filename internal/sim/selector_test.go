package sim

import (
	"testing"
	"time"
)

func TestLookupSelector(t *testing.T) {
	if _, ok := LookupSelector("dfs"); !ok {
		t.Error("dfs must be registered")
	}
	if _, ok := LookupSelector("earliest"); !ok {
		t.Error("earliest must be registered")
	}
	if _, ok := LookupSelector("bogus"); ok {
		t.Error("unknown names must not resolve")
	}

	s, ok := LookupSelector("")
	if !ok || s.Name() != "earliest" {
		t.Errorf("empty name must resolve to the default, got %v %v", s, ok)
	}
}

func TestSelectorNamesSorted(t *testing.T) {
	names := SelectorNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestDFSPicksLowestID(t *testing.T) {
	s, _ := LookupSelector("dfs")
	cands := []Candidate{
		{ID: "N802SW", AvailableAt: t0},
		{ID: "N801SW", AvailableAt: t0.Add(time.Hour)},
	}
	c, ok := s.Pick(cands)
	if !ok || c.ID != "N801SW" {
		t.Errorf("Pick = %v %v, want N801SW (availability is irrelevant to dfs)", c, ok)
	}

	if _, ok := s.Pick(nil); ok {
		t.Error("empty candidate set must not pick")
	}
}

func TestEarliestPicksSoonest(t *testing.T) {
	s, _ := LookupSelector("earliest")
	cands := []Candidate{
		{ID: "N801SW", AvailableAt: t0.Add(time.Hour)},
		{ID: "N803SW", AvailableAt: t0},
		{ID: "N802SW", AvailableAt: t0},
	}
	c, ok := s.Pick(cands)
	if !ok || c.ID != "N802SW" {
		t.Errorf("Pick = %v %v, want N802SW (earliest, ties by id)", c, ok)
	}
}
