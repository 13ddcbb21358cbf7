package sim

import (
	"time"

	"airline_recovery/internal/metrics"
	"airline_recovery/internal/model"
)

// FlightRecord is the immutable post-run state of one flight.
type FlightRecord struct {
	ID           model.FlightID    `json:"id"`
	Number       string            `json:"flight_number"`
	Tail         string            `json:"tail"`
	Pilot        model.CrewID      `json:"pilot,omitempty"`
	Origin       model.AirportCode `json:"origin"`
	Dest         model.AirportCode `json:"dest"`
	Status       string            `json:"status"`
	SchedDepart  time.Time         `json:"sched_depart"`
	SchedArrive  time.Time         `json:"sched_arrive"`
	ActDepart    *time.Time        `json:"act_depart,omitempty"`
	ActArrive    *time.Time        `json:"act_arrive,omitempty"`
	DelayMin     int               `json:"delay_min"`
	CancelReason string            `json:"cancel_reason,omitempty"`
}

// AircraftRecord is the post-run state of one aircraft.
type AircraftRecord struct {
	Tail         string            `json:"tail"`
	TypeName     string            `json:"typename"`
	Capacity     int               `json:"capacity"`
	Start        model.AirportCode `json:"start_location"`
	End          model.AirportCode `json:"end_location"`
	FlightsFlown int               `json:"flights_flown"`
	BusyMin      int               `json:"busy_min"`
}

// CrewRecord is the post-run state of one crew member.
type CrewRecord struct {
	ID        model.CrewID      `json:"id"`
	Start     model.AirportCode `json:"start_location"`
	End       model.AirportCode `json:"end_location"`
	LegsFlown int               `json:"legs_flown"`
	BusyMin   int               `json:"busy_min"`
}

// Result is the opaque handle a completed run hands to the host boundary: a
// read-only snapshot of final entity states plus the aggregated metrics.
type Result struct {
	ScenarioID   string          `json:"scenario_id"`
	ScenarioName string          `json:"scenario_name"`
	MaxDelayMin  int             `json:"max_delay_min"`
	Flights      []FlightRecord  `json:"flights"`
	Aircraft     []AircraftRecord `json:"aircraft"`
	Crew         []CrewRecord    `json:"crew"`
	Metrics      metrics.Metrics `json:"metrics"`
}

func (e *Engine) buildResult() *Result {
	res := &Result{
		ScenarioID:   e.sc.ID,
		ScenarioName: e.sc.Name,
		MaxDelayMin:  int(e.cfg.MaxDelay.Minutes()),
	}

	fin := metrics.FinalizeInput{
		Horizon: e.cfg.End.Sub(e.cfg.Start),
		Demand:  e.sc.Demand,
	}

	for _, id := range e.order {
		f := e.flights[id]
		rec := FlightRecord{
			ID:           id,
			Number:       f.Plan.Number,
			Tail:         f.Tail,
			Pilot:        f.Pilot,
			Origin:       f.Plan.Origin,
			Dest:         f.Plan.Dest,
			Status:       f.Status.String(),
			SchedDepart:  f.Plan.SchedDepart,
			SchedArrive:  f.Plan.SchedArrive,
			DelayMin:     int(f.Delay.Minutes()),
			CancelReason: f.CancelReason,
		}
		if !f.ActDepart.IsZero() {
			dep, arr := f.ActDepart, f.ActArrive
			rec.ActDepart, rec.ActArrive = &dep, &arr
		}
		res.Flights = append(res.Flights, rec)

		fin.Legs = append(fin.Legs, metrics.LegOutcome{
			Origin:    f.Plan.Origin,
			Dest:      f.Plan.Dest,
			Cancelled: f.Status == model.FlightCancelled,
			Delay:     f.Delay,
		})
	}

	for _, tail := range e.tailOrder {
		as := e.res.aircraft[tail]
		res.Aircraft = append(res.Aircraft, AircraftRecord{
			Tail:         tail,
			TypeName:     as.info.TypeName,
			Capacity:     as.info.Capacity,
			Start:        as.info.Home,
			End:          as.Location,
			FlightsFlown: as.FlightsFlown,
			BusyMin:      int(as.Busy.Minutes()),
		})
		fin.AircraftBusy = append(fin.AircraftBusy, as.Busy)
	}

	for _, id := range e.crewOrder {
		cs := e.res.crew[id]
		res.Crew = append(res.Crew, CrewRecord{
			ID:        id,
			Start:     cs.info.Home,
			End:       cs.Location,
			LegsFlown: cs.LegsFlown,
			BusyMin:   int(cs.Busy.Minutes()),
		})
		fin.CrewBusy = append(fin.CrewBusy, cs.Busy)
	}

	res.Metrics = e.acc.Finalize(fin)
	return res
}
