package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"airline_recovery/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedFew(t *testing.T, s *Store, mutate func(*model.Scenario)) *model.Scenario {
	t.Helper()
	sc := Few("few")
	if mutate != nil {
		mutate(sc)
	}
	if err := s.Insert(context.Background(), sc); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return sc
}

func TestRoundTrip(t *testing.T) {
	s := openTestStore(t)
	want := seedFew(t, s, nil)

	got, err := s.Load(context.Background(), "few")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.Name != want.Name {
		t.Errorf("Name = %q, want %q", got.Name, want.Name)
	}
	if !got.Config.Start.Equal(want.Config.Start) || !got.Config.End.Equal(want.Config.End) {
		t.Errorf("window = %v..%v, want %v..%v",
			got.Config.Start, got.Config.End, want.Config.Start, want.Config.End)
	}
	if got.Config.MaxDelay != want.Config.MaxDelay {
		t.Errorf("MaxDelay = %v, want %v", got.Config.MaxDelay, want.Config.MaxDelay)
	}
	if got.Config.AircraftSelector != "dfs" || got.Config.CrewSelector != "dfs" {
		t.Errorf("selectors = %q/%q", got.Config.AircraftSelector, got.Config.CrewSelector)
	}

	if len(got.Airports) != 5 || len(got.Fleet) != 3 || len(got.Crew) != 3 {
		t.Errorf("counts: airports=%d fleet=%d crew=%d",
			len(got.Airports), len(got.Fleet), len(got.Crew))
	}
	if len(got.Flights) != 4 {
		t.Fatalf("flights = %d, want 4", len(got.Flights))
	}

	// Flights load ascending by id with their schedule intact.
	f3 := got.Flights[2]
	if f3.ID != 3 || f3.Origin != "SAN" || f3.Dest != "DAL" || f3.Pilot != 3 {
		t.Errorf("flight 3 = %+v", f3)
	}
	if !f3.SchedDepart.Equal(want.Flights[2].SchedDepart) {
		t.Errorf("flight 3 departs %v, want %v", f3.SchedDepart, want.Flights[2].SchedDepart)
	}

	if len(got.Demand) != 3 {
		t.Fatalf("demand rows = %d, want 3", len(got.Demand))
	}
	var multi *model.Demand
	for i := range got.Demand {
		if len(got.Demand[i].Path) == 3 {
			multi = &got.Demand[i]
		}
	}
	if multi == nil || multi.Count != 80 {
		t.Errorf("missing SAN-DAL-MDW itinerary: %+v", got.Demand)
	}
}

func TestInsertReplacesExisting(t *testing.T) {
	s := openTestStore(t)
	seedFew(t, s, nil)
	seedFew(t, s, func(sc *model.Scenario) {
		sc.Name = "few v2"
		sc.Flights = sc.Flights[:2]
	})

	got, err := s.Load(context.Background(), "few")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "few v2" || len(got.Flights) != 2 {
		t.Errorf("got %q with %d flights, want few v2 with 2", got.Name, len(got.Flights))
	}
}

func TestScenarioNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), "nope")
	if !errors.Is(err, ErrScenarioNotFound) {
		t.Errorf("got %v, want ErrScenarioNotFound", err)
	}
}

func TestUnknownSelectorRejected(t *testing.T) {
	s := openTestStore(t)
	seedFew(t, s, func(sc *model.Scenario) {
		sc.Config.AircraftSelector = "genetic"
	})
	_, err := s.Load(context.Background(), "few")
	if !errors.Is(err, ErrUnknownSelector) {
		t.Errorf("got %v, want ErrUnknownSelector", err)
	}
}

func TestDemandReferenceValidated(t *testing.T) {
	s := openTestStore(t)
	seedFew(t, s, func(sc *model.Scenario) {
		sc.Demand = append(sc.Demand, model.Demand{
			Path: []model.AirportCode{"DEN", "XXX"}, Count: 10,
		})
	})
	_, err := s.Load(context.Background(), "few")
	if !errors.Is(err, ErrMissingReference) {
		t.Errorf("got %v, want ErrMissingReference", err)
	}
}

func TestInvertedDisruptionRejected(t *testing.T) {
	s := openTestStore(t)
	start := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	seedFew(t, s, func(sc *model.Scenario) {
		sc.Disruptions = append(sc.Disruptions, model.Disruption{
			Airport: "DEN", Kind: model.DisruptDepartures, HourlyRate: 5,
			Start: start, End: start.Add(-time.Hour),
		})
	})
	_, err := s.Load(context.Background(), "few")
	if !errors.Is(err, ErrBadDisruption) {
		t.Errorf("got %v, want ErrBadDisruption", err)
	}
}

func TestDisruptionKindsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	start := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	seedFew(t, s, func(sc *model.Scenario) {
		sc.Disruptions = []model.Disruption{
			{Airport: "DEN", Kind: model.DisruptArrivals, HourlyRate: 20,
				Start: start, End: start.Add(time.Hour)},
			{Airport: "SAN", Kind: model.DisruptDepartures, HourlyRate: 4,
				Start: start, End: start.Add(2 * time.Hour), Reason: "wx"},
		}
	})

	got, err := s.Load(context.Background(), "few")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Disruptions) != 2 {
		t.Fatalf("disruptions = %d, want 2", len(got.Disruptions))
	}
	for _, d := range got.Disruptions {
		switch d.Airport {
		case "DEN":
			if d.Kind != model.DisruptArrivals || d.HourlyRate != 20 {
				t.Errorf("DEN disruption = %+v", d)
			}
		case "SAN":
			if d.Kind != model.DisruptDepartures || d.Reason != "wx" {
				t.Errorf("SAN disruption = %+v", d)
			}
		default:
			t.Errorf("unexpected disruption airport %s", d.Airport)
		}
	}
}

func TestDeadheadersRoundTrip(t *testing.T) {
	s := openTestStore(t)
	seedFew(t, s, func(sc *model.Scenario) {
		sc.Flights[0].Deadheaders = []model.CrewID{2}
	})

	got, err := s.Load(context.Background(), "few")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	dh := got.Flights[0].Deadheaders
	if len(dh) != 1 || dh[0] != 2 {
		t.Errorf("deadheaders = %v, want [2]", dh)
	}
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	seedFew(t, s, nil)
	if err := s.Insert(context.Background(), Few("other")); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "few" || list[1].ID != "other" {
		t.Errorf("list = %+v", list)
	}
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2025-03-01 08:30:00")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, time.March, 1, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTime = %v, want %v", got, want)
	}

	if _, err := ParseTime("03/01/2025 8:30am"); !errors.Is(err, ErrBadTimestamp) {
		t.Errorf("got %v, want ErrBadTimestamp", err)
	}
}
