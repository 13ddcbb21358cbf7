package sim

import (
	"time"

	"airline_recovery/internal/model"
)

// Flight is the mutable simulation view of a FlightPlan. Tail and Pilot start
// as the plan's original assignment and may change through substitution.
type Flight struct {
	Plan *model.FlightPlan

	Status      model.FlightStatus
	Tail        string
	Pilot       model.CrewID
	Deadheaders []model.CrewID

	ActDepart time.Time
	ActArrive time.Time

	// Delay is the accumulated departure delay. It is non-decreasing until
	// the flight departs or is cancelled.
	Delay time.Duration

	CancelReason string
}

func newFlight(p *model.FlightPlan) *Flight {
	return &Flight{
		Plan:        p,
		Status:      model.FlightScheduled,
		Tail:        p.Tail,
		Pilot:       p.Pilot,
		Deadheaders: p.Deadheaders,
	}
}

// projectedDeparture is the flight's current best-known departure time.
func (f *Flight) projectedDeparture() time.Time {
	if f.Status == model.FlightDeparted || f.Status == model.FlightCompleted {
		return f.ActDepart
	}
	return f.Plan.SchedDepart.Add(f.Delay)
}

// projectedArrival is the departure projection shifted by the scheduled
// block time, or the actual arrival once airborne.
func (f *Flight) projectedArrival() time.Time {
	if f.Status == model.FlightDeparted || f.Status == model.FlightCompleted {
		return f.ActArrive
	}
	return f.projectedDeparture().Add(f.Plan.BlockTime())
}
