// Package metrics aggregates simulation outcomes into the summary read back
// at the host boundary.
package metrics

import (
	"time"

	"airline_recovery/internal/model"
)

// CriticalDelay is the departure delay at or beyond which a passenger leg
// counts as displaced even though the flight operated.
const CriticalDelay = 180 * time.Minute

// Metrics is the per-run outcome summary.
type Metrics struct {
	FlightsTotal int `json:"flights_total"`
	OnTime       int `json:"on_time"`
	Delayed      int `json:"delayed"`
	Cancelled    int `json:"cancelled"`

	AircraftSubstitutions int `json:"aircraft_substitutions"`
	CrewSubstitutions     int `json:"crew_substitutions"`
	DisruptionsApplied    int `json:"disruptions_applied"`

	TotalDelayMin int     `json:"total_delay_min"`
	AvgDelayMin   float64 `json:"avg_delay_min"`

	AircraftUtilization float64 `json:"aircraft_utilization"`
	CrewUtilization     float64 `json:"crew_utilization"`

	PassengersTotal     int `json:"passengers_total"`
	PassengersDisplaced int `json:"passengers_displaced"`
}

// Accumulator consumes engine events as the simulation runs and finalizes
// the derived aggregates afterwards. It implements model.Observer.
type Accumulator struct {
	m Metrics
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// OnEvent updates the running counters.
func (a *Accumulator) OnEvent(ev model.Event) {
	switch ev.Type {
	case model.EventFlightDeparted:
		if ev.Delay > 0 {
			a.m.Delayed++
			a.m.TotalDelayMin += int(ev.Delay.Minutes())
		} else {
			a.m.OnTime++
		}
	case model.EventFlightCancelled:
		a.m.Cancelled++
	case model.EventAircraftSubstituted:
		a.m.AircraftSubstitutions++
	case model.EventCrewSubstituted:
		a.m.CrewSubstitutions++
	case model.EventDisruptionStarted:
		a.m.DisruptionsApplied++
	}
}

// LegOutcome is the per-flight view Finalize needs for passenger impact.
type LegOutcome struct {
	Origin    model.AirportCode
	Dest      model.AirportCode
	Cancelled bool
	Delay     time.Duration
}

// FinalizeInput carries the end-of-run state for the derived aggregates.
type FinalizeInput struct {
	Horizon      time.Duration
	AircraftBusy []time.Duration
	CrewBusy     []time.Duration
	Legs         []LegOutcome
	Demand       []model.Demand
}

// Finalize computes utilization and passenger displacement and returns the
// completed metrics.
func (a *Accumulator) Finalize(in FinalizeInput) Metrics {
	m := a.m
	m.FlightsTotal = len(in.Legs)
	if flown := m.OnTime + m.Delayed; flown > 0 {
		m.AvgDelayMin = float64(m.TotalDelayMin) / float64(flown)
	}
	m.AircraftUtilization = utilization(in.AircraftBusy, in.Horizon)
	m.CrewUtilization = utilization(in.CrewBusy, in.Horizon)
	m.PassengersTotal, m.PassengersDisplaced = displacement(in.Demand, in.Legs)
	return m
}

func utilization(busy []time.Duration, horizon time.Duration) float64 {
	if len(busy) == 0 || horizon <= 0 {
		return 0
	}
	var total time.Duration
	for _, b := range busy {
		total += b
	}
	return total.Seconds() / (horizon.Seconds() * float64(len(busy)))
}

// displacement counts passengers whose itinerary has a broken leg: every
// flight serving the leg's airport pair was cancelled or critically delayed.
// Legs no scheduled flight ever served are not evaluable and do not count.
func displacement(demand []model.Demand, legs []LegOutcome) (total, displaced int) {
	type pair struct{ o, d model.AirportCode }
	served := make(map[pair]bool)
	seen := make(map[pair]bool)
	for _, leg := range legs {
		p := pair{leg.Origin, leg.Dest}
		seen[p] = true
		if !leg.Cancelled && leg.Delay < CriticalDelay {
			served[p] = true
		}
	}

	for _, d := range demand {
		total += d.Count
		for i := 0; i+1 < len(d.Path); i++ {
			p := pair{d.Path[i], d.Path[i+1]}
			if seen[p] && !served[p] {
				displaced += d.Count
				break
			}
		}
	}
	return total, displaced
}
