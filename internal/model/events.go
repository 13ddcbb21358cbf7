package model

import "time"

// EventType enumerates the observable simulation events.
type EventType string

const (
	EventFlightDelayed       EventType = "flight.delayed"
	EventFlightCancelled     EventType = "flight.cancelled"
	EventFlightDeparted      EventType = "flight.departed"
	EventFlightArrived       EventType = "flight.arrived"
	EventAircraftSubstituted EventType = "aircraft.substituted"
	EventCrewSubstituted     EventType = "crew.substituted"
	EventDisruptionStarted   EventType = "disruption.started"
	EventDisruptionEnded     EventType = "disruption.ended"
)

// DelayReason says why a flight could not depart on time.
type DelayReason string

const (
	DelayAircraftShortage DelayReason = "aircraft_shortage"
	DelayCrewShortage     DelayReason = "crew_shortage"
	DelayRateLimited      DelayReason = "rate_limited"
	DelayHorizonExceeded  DelayReason = "horizon_exceeded"
)

// Event is a single observable simulation occurrence. Fields not relevant to
// the event type are zero.
type Event struct {
	Time    time.Time   `json:"time"`
	Type    EventType   `json:"type"`
	Flight  FlightID    `json:"flight,omitempty"`
	Tail    string      `json:"tail,omitempty"`
	Crew    CrewID      `json:"crew,omitempty"`
	Airport AirportCode `json:"airport,omitempty"`
	Delay   time.Duration `json:"delay,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// Observer receives events synchronously as the engine produces them.
// Implementations must not mutate simulation state.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent calls f(ev).
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }
