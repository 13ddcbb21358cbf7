// Package model defines the scenario entities and simulation state shared by
// the loader, the recovery engine, and the exporters.
package model

import "time"

// AirportCode is an IATA-style airport identifier, e.g. "DEN".
type AirportCode string

// FlightID identifies a flight row within a scenario.
type FlightID int64

// CrewID identifies a crew member within a scenario.
type CrewID int64

// Config holds the scenario-wide simulation parameters.
type Config struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	CrewTurnaround     time.Duration `json:"crew_turnaround"`
	AircraftTurnaround time.Duration `json:"aircraft_turnaround"`

	// MaxDelay is the cancellation ceiling: a flight whose projected
	// departure delay would exceed it is cancelled instead.
	MaxDelay time.Duration `json:"max_delay"`

	// Selector strategy names. Empty means the engine default.
	AircraftSelector string `json:"aircraft_selector"`
	CrewSelector     string `json:"crew_selector"`

	// WaitForDeadheaders makes crew riding inbound as deadheaders eligible
	// substitution candidates at the inbound flight's destination.
	WaitForDeadheaders bool `json:"wait_for_deadheaders"`

	AircraftReassignTolerance time.Duration `json:"aircraft_reassign_tolerance"`
	CrewReassignTolerance     time.Duration `json:"crew_reassign_tolerance"`
}

// Airport is a scenario airport with its hourly movement caps.
type Airport struct {
	Code         AirportCode `json:"code"`
	MaxDepPerHour int        `json:"max_dep_per_hour"`
	MaxArrPerHour int        `json:"max_arr_per_hour"`
	Latitude     float64     `json:"latitude"`
	Longitude    float64     `json:"longitude"`
}

// Aircraft is a scenario aircraft record.
type Aircraft struct {
	Tail     string      `json:"tail"`
	Home     AirportCode `json:"home"`
	TypeName string      `json:"typename"`
	Capacity int         `json:"capacity"`
}

// Crew is a scenario crew member record.
type Crew struct {
	ID   CrewID      `json:"id"`
	Home AirportCode `json:"home"`
}

// FlightPlan is the scheduled (immutable) view of a flight. The crew layout
// follows the store convention: the pilot first, deadheaders after.
type FlightPlan struct {
	ID          FlightID    `json:"id"`
	Number      string      `json:"flight_number"`
	Tail        string      `json:"aircraft"`
	Pilot       CrewID      `json:"pilot"` // 0 = unassigned
	Origin      AirportCode `json:"origin"`
	Dest        AirportCode `json:"dest"`
	SchedDepart time.Time   `json:"sched_depart"`
	SchedArrive time.Time   `json:"sched_arrive"`
	Deadheaders []CrewID    `json:"deadheaders,omitempty"`
}

// BlockTime is the scheduled gate-to-gate duration. A delayed departure
// shifts the arrival by the same amount.
func (p *FlightPlan) BlockTime() time.Duration {
	return p.SchedArrive.Sub(p.SchedDepart)
}

// Demand is a passenger itinerary over consecutive airport legs.
type Demand struct {
	Path  []AirportCode `json:"path"`
	Count int           `json:"count"`
}

// DisruptionKind says which movement direction a disruption constrains.
type DisruptionKind int

const (
	// DisruptArrivals models a ground delay program: arrivals at the site
	// are limited to the disruption's hourly rate.
	DisruptArrivals DisruptionKind = iota
	// DisruptDepartures models a departure rate limit or ground stop.
	DisruptDepartures
)

func (k DisruptionKind) String() string {
	if k == DisruptArrivals {
		return "gdp"
	}
	return "dep"
}

// Disruption is a capacity-reduction window at an airport. HourlyRate is the
// effective allowed rate during the window; zero is a ground stop.
type Disruption struct {
	Airport    AirportCode    `json:"airport"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	HourlyRate int            `json:"hourly_rate"`
	Kind       DisruptionKind `json:"kind"`
	Reason     string         `json:"reason"`
}

// Scenario is a fully materialized scenario snapshot, immutable once loaded.
type Scenario struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Config      Config                    `json:"config"`
	Airports    map[AirportCode]*Airport  `json:"airports"`
	Fleet       map[string]*Aircraft      `json:"fleet"`
	Crew        map[CrewID]*Crew          `json:"crew"`
	Flights     []*FlightPlan             `json:"flights"` // ascending by ID
	Demand      []Demand                  `json:"demand"`
	Disruptions []Disruption              `json:"disruptions"`
}

// FlightStatus is the per-flight state machine. Completed and Cancelled are
// terminal; cancellation is reachable only before departure.
type FlightStatus int

const (
	FlightScheduled FlightStatus = iota
	FlightAwaitingResources
	FlightDelayed
	FlightDeparted
	FlightCompleted
	FlightCancelled
)

func (s FlightStatus) String() string {
	switch s {
	case FlightScheduled:
		return "scheduled"
	case FlightAwaitingResources:
		return "awaiting_resources"
	case FlightDelayed:
		return "delayed"
	case FlightDeparted:
		return "departed"
	case FlightCompleted:
		return "completed"
	case FlightCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s FlightStatus) Terminal() bool {
	return s == FlightCompleted || s == FlightCancelled
}
