package model

import (
	"testing"
	"time"
)

func TestFlightStatusStrings(t *testing.T) {
	cases := map[FlightStatus]string{
		FlightScheduled:         "scheduled",
		FlightAwaitingResources: "awaiting_resources",
		FlightDelayed:           "delayed",
		FlightDeparted:          "departed",
		FlightCompleted:         "completed",
		FlightCancelled:         "cancelled",
		FlightStatus(99):        "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("String(%d) = %q, want %q", s, got, want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []FlightStatus{FlightScheduled, FlightAwaitingResources, FlightDelayed, FlightDeparted} {
		if s.Terminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
	if !FlightCompleted.Terminal() || !FlightCancelled.Terminal() {
		t.Error("completed and cancelled are terminal")
	}
}

func TestBlockTime(t *testing.T) {
	dep := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	p := FlightPlan{SchedDepart: dep, SchedArrive: dep.Add(130 * time.Minute)}
	if got := p.BlockTime(); got != 130*time.Minute {
		t.Errorf("BlockTime = %v", got)
	}
}

func TestDisruptionKindString(t *testing.T) {
	if DisruptArrivals.String() != "gdp" || DisruptDepartures.String() != "dep" {
		t.Errorf("kind strings = %q/%q", DisruptArrivals, DisruptDepartures)
	}
}
