package sim

import (
	"errors"
	"fmt"
	"time"

	"airline_recovery/internal/model"
)

// ErrResourceConflict means a bind was attempted on a resource already bound
// to a different flight. Given correct dispatcher logic it never happens; a
// detected occurrence is an engine defect and aborts the run.
var ErrResourceConflict = errors.New("resource already bound to another flight")

// maxDutyIn24h is the crew legality window: at most this much block time in
// any trailing 24-hour period.
const maxDutyIn24h = 10 * time.Hour

type dutyLeg struct {
	from, to time.Time
}

type aircraftState struct {
	info *model.Aircraft

	Location    model.AirportCode
	AvailableAt time.Time
	Bound       model.FlightID // 0 = free

	Busy        time.Duration
	FlightsFlown int
}

type crewState struct {
	info *model.Crew

	Location    model.AirportCode
	AvailableAt time.Time
	Bound       model.FlightID // 0 = free
	deadhead    bool           // bound as a deadheading passenger

	duty []dutyLeg

	Busy     time.Duration
	LegsFlown int
}

// resourceLedger tracks, per aircraft and per crew member, current location
// and the time at which it next becomes available. It is owned exclusively by
// one engine instance.
type resourceLedger struct {
	cfg      *model.Config
	aircraft map[string]*aircraftState
	crew     map[model.CrewID]*crewState
}

func newResourceLedger(sc *model.Scenario) *resourceLedger {
	r := &resourceLedger{
		cfg:      &sc.Config,
		aircraft: make(map[string]*aircraftState, len(sc.Fleet)),
		crew:     make(map[model.CrewID]*crewState, len(sc.Crew)),
	}
	for tail, ac := range sc.Fleet {
		r.aircraft[tail] = &aircraftState{
			info:        ac,
			Location:    ac.Home,
			AvailableAt: sc.Config.Start,
		}
	}
	for id, c := range sc.Crew {
		r.crew[id] = &crewState{
			info:        c,
			Location:    c.Home,
			AvailableAt: sc.Config.Start,
		}
	}
	return r
}

// bindAircraft binds an aircraft to a departing flight for [dep, arr].
func (r *resourceLedger) bindAircraft(tail string, fid model.FlightID, dep, arr time.Time) error {
	as, ok := r.aircraft[tail]
	if !ok {
		return fmt.Errorf("aircraft %s not in scenario fleet", tail)
	}
	if as.Bound != 0 && as.Bound != fid {
		return fmt.Errorf("aircraft %s bound to flight %d, wanted %d: %w", tail, as.Bound, fid, ErrResourceConflict)
	}
	as.Bound = fid
	return nil
}

// landAircraft releases an aircraft at the flight's destination. The aircraft
// becomes available again after its turnaround.
func (r *resourceLedger) landAircraft(tail string, dest model.AirportCode, dep, arr time.Time) {
	as := r.aircraft[tail]
	as.Bound = 0
	as.Location = dest
	as.AvailableAt = arr.Add(r.cfg.AircraftTurnaround)
	as.Busy += arr.Sub(dep)
	as.FlightsFlown++
}

// bindCrew binds a crew member to a departing flight, as its pilot or as a
// deadheading passenger. Only piloting accrues duty time.
func (r *resourceLedger) bindCrew(id model.CrewID, fid model.FlightID, dep, arr time.Time, asDeadhead bool) error {
	cs, ok := r.crew[id]
	if !ok {
		return fmt.Errorf("crew %d not in scenario", id)
	}
	if cs.Bound != 0 && cs.Bound != fid {
		return fmt.Errorf("crew %d bound to flight %d, wanted %d: %w", id, cs.Bound, fid, ErrResourceConflict)
	}
	cs.Bound = fid
	cs.deadhead = asDeadhead
	if !asDeadhead {
		cs.duty = append(cs.duty, dutyLeg{from: dep, to: arr})
	}
	return nil
}

// landCrew releases a crew member at the flight's destination.
func (r *resourceLedger) landCrew(id model.CrewID, dest model.AirportCode, dep, arr time.Time) {
	cs := r.crew[id]
	wasDeadhead := cs.deadhead
	cs.Bound = 0
	cs.deadhead = false
	cs.Location = dest
	cs.AvailableAt = arr.Add(r.cfg.CrewTurnaround)
	if !wasDeadhead {
		cs.Busy += arr.Sub(dep)
		cs.LegsFlown++
	}
}

// release frees a resource binding without relocating it. Used when a
// departed binding must be rolled back at teardown.
func (r *resourceLedger) release(tail string, id model.CrewID) {
	if tail != "" {
		if as, ok := r.aircraft[tail]; ok {
			as.Bound = 0
		}
	}
	if id != 0 {
		if cs, ok := r.crew[id]; ok {
			cs.Bound = 0
			cs.deadhead = false
		}
	}
}

// crewLegalFor reports whether flying [dep, arr] would keep the crew member
// within the duty limit: accumulated block time in the trailing 24 hours
// ending at arr, plus this leg, must not exceed maxDutyIn24h.
func (r *resourceLedger) crewLegalFor(id model.CrewID, dep, arr time.Time) bool {
	cs, ok := r.crew[id]
	if !ok {
		return false
	}
	windowStart := arr.Add(-24 * time.Hour)
	total := arr.Sub(dep)
	for _, leg := range cs.duty {
		from, to := leg.from, leg.to
		if to.Before(windowStart) {
			continue
		}
		if from.Before(windowStart) {
			from = windowStart
		}
		if to.After(arr) {
			to = arr
		}
		if to.After(from) {
			total += to.Sub(from)
		}
	}
	return total <= maxDutyIn24h
}
