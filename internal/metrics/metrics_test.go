package metrics

import (
	"testing"
	"time"

	"airline_recovery/internal/model"
)

func TestAccumulatorCounters(t *testing.T) {
	a := NewAccumulator()

	a.OnEvent(model.Event{Type: model.EventFlightDeparted})
	a.OnEvent(model.Event{Type: model.EventFlightDeparted, Delay: 45 * time.Minute})
	a.OnEvent(model.Event{Type: model.EventFlightCancelled})
	a.OnEvent(model.Event{Type: model.EventAircraftSubstituted})
	a.OnEvent(model.Event{Type: model.EventCrewSubstituted})
	a.OnEvent(model.Event{Type: model.EventDisruptionStarted})
	a.OnEvent(model.Event{Type: model.EventDisruptionEnded})

	m := a.Finalize(FinalizeInput{})
	if m.OnTime != 1 || m.Delayed != 1 || m.Cancelled != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", m.OnTime, m.Delayed, m.Cancelled)
	}
	if m.TotalDelayMin != 45 {
		t.Errorf("TotalDelayMin = %d, want 45", m.TotalDelayMin)
	}
	if m.AvgDelayMin != 22.5 {
		t.Errorf("AvgDelayMin = %v, want 22.5", m.AvgDelayMin)
	}
	if m.AircraftSubstitutions != 1 || m.CrewSubstitutions != 1 || m.DisruptionsApplied != 1 {
		t.Errorf("subs/disruptions = %d/%d/%d",
			m.AircraftSubstitutions, m.CrewSubstitutions, m.DisruptionsApplied)
	}
}

func TestUtilization(t *testing.T) {
	a := NewAccumulator()
	m := a.Finalize(FinalizeInput{
		Horizon:      10 * time.Hour,
		AircraftBusy: []time.Duration{5 * time.Hour, 0},
		CrewBusy:     []time.Duration{10 * time.Hour},
	})
	if m.AircraftUtilization != 0.25 {
		t.Errorf("AircraftUtilization = %v, want 0.25", m.AircraftUtilization)
	}
	if m.CrewUtilization != 1.0 {
		t.Errorf("CrewUtilization = %v, want 1.0", m.CrewUtilization)
	}

	empty := NewAccumulator().Finalize(FinalizeInput{Horizon: time.Hour})
	if empty.AircraftUtilization != 0 {
		t.Errorf("no fleet must yield 0, got %v", empty.AircraftUtilization)
	}
}

func TestDisplacement(t *testing.T) {
	demand := []model.Demand{
		{Path: []model.AirportCode{"DEN", "LAS"}, Count: 120},
		{Path: []model.AirportCode{"SAN", "DAL", "MDW"}, Count: 80},
		// No flight ever serves this pair; it is not evaluable.
		{Path: []model.AirportCode{"DEN", "OAK"}, Count: 30},
	}
	legs := []LegOutcome{
		{Origin: "DEN", Dest: "LAS"},
		{Origin: "SAN", Dest: "DAL", Cancelled: true},
		{Origin: "DAL", Dest: "MDW"},
	}

	a := NewAccumulator()
	m := a.Finalize(FinalizeInput{Demand: demand, Legs: legs})
	if m.PassengersTotal != 230 {
		t.Errorf("PassengersTotal = %d, want 230", m.PassengersTotal)
	}
	if m.PassengersDisplaced != 80 {
		t.Errorf("PassengersDisplaced = %d, want 80", m.PassengersDisplaced)
	}
}

func TestCriticalDelayDisplaces(t *testing.T) {
	demand := []model.Demand{{Path: []model.AirportCode{"DEN", "LAS"}, Count: 50}}

	// One critically delayed leg, no alternative: displaced.
	m := NewAccumulator().Finalize(FinalizeInput{
		Demand: demand,
		Legs:   []LegOutcome{{Origin: "DEN", Dest: "LAS", Delay: CriticalDelay}},
	})
	if m.PassengersDisplaced != 50 {
		t.Errorf("displaced = %d, want 50", m.PassengersDisplaced)
	}

	// A second on-time flight on the pair rescues the itinerary.
	m = NewAccumulator().Finalize(FinalizeInput{
		Demand: demand,
		Legs: []LegOutcome{
			{Origin: "DEN", Dest: "LAS", Delay: CriticalDelay},
			{Origin: "DEN", Dest: "LAS", Delay: 20 * time.Minute},
		},
	})
	if m.PassengersDisplaced != 0 {
		t.Errorf("displaced = %d, want 0", m.PassengersDisplaced)
	}
}
