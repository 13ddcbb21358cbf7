package sim

import (
	"sort"
	"time"

	"airline_recovery/internal/model"
)

// The dispatcher runs whenever a flight is due to depart. It performs the
// two-stage decision from the recovery policy: first search for substitute
// resources within the reassignment tolerances, then fall back to delaying
// the flight, or cancelling it once the projected delay would exceed the
// scenario ceiling.

func (e *Engine) handleFlightReady(f *Flight) {
	if f.Status.Terminal() || f.Status == model.FlightDeparted {
		return
	}
	now := e.clock.now
	if now.Before(f.Plan.SchedDepart) {
		e.clock.schedule(&event{at: f.Plan.SchedDepart, kind: evFlightReady, flight: f.Plan.ID})
		return
	}
	f.Status = model.FlightAwaitingResources

	acTolLimit := f.Plan.SchedDepart.Add(e.cfg.AircraftReassignTolerance)
	acReady, acOK := e.aircraftReady(f, f.Tail)
	if !acOK || acReady.After(acTolLimit) {
		if sub, ok := e.findAircraftSub(f, acTolLimit); ok {
			f.Tail = sub
			e.emit(model.Event{Time: now, Type: model.EventAircraftSubstituted,
				Flight: f.Plan.ID, Tail: sub})
			acReady, acOK = e.aircraftReady(f, sub)
		}
	}
	if !acOK {
		e.cancel(f, "no aircraft available at "+string(f.Plan.Origin))
		return
	}

	crewReady, crewOK := e.pilotReady(f)
	if f.Pilot != 0 {
		crewTolLimit := f.Plan.SchedDepart.Add(e.cfg.CrewReassignTolerance)
		if !crewOK || crewReady.After(crewTolLimit) {
			if sub, ok := e.findCrewSub(f, crewTolLimit); ok {
				f.Pilot = sub
				e.emit(model.Event{Time: now, Type: model.EventCrewSubstituted,
					Flight: f.Plan.ID, Crew: sub})
				crewReady, crewOK = e.pilotReady(f)
			}
		}
	}
	if !crewOK {
		e.cancel(f, "no crew available at "+string(f.Plan.Origin))
		return
	}

	ready := acReady
	reason := model.DelayAircraftShortage
	if crewReady.After(ready) {
		ready = crewReady
		reason = model.DelayCrewShortage
	}
	if ready.After(now) {
		e.deferFlight(f, ready, reason)
		return
	}

	// Resources are on hand; ask the slot ledger for clearance. Both slots
	// are checked before either is consumed, so a blocked arrival does not
	// burn a departure slot on every retry.
	estArr := now.Add(f.Plan.BlockTime())
	if !e.slots.canReserve(f.Plan.Origin, departure, now) {
		next, ok := e.slots.nextOpen(f.Plan.Origin, departure, now, e.horizon())
		if !ok {
			e.cancel(f, "departure capacity exhausted at "+string(f.Plan.Origin))
			return
		}
		e.deferFlight(f, next, model.DelayRateLimited)
		return
	}
	if !e.slots.canReserve(f.Plan.Dest, arrival, estArr) {
		next, ok := e.slots.nextOpen(f.Plan.Dest, arrival, estArr, e.horizon())
		if !ok {
			e.cancel(f, "arrival capacity exhausted at "+string(f.Plan.Dest))
			return
		}
		e.deferFlight(f, next.Add(-f.Plan.BlockTime()), model.DelayRateLimited)
		return
	}
	e.slots.consume(f.Plan.Origin, departure, now)
	e.slots.consume(f.Plan.Dest, arrival, estArr)

	e.depart(f, now, estArr)
}

// aircraftReady computes when the given tail can serve f at its origin. It
// projects the tail's remaining rotation one leg at a time, so an aircraft
// two legs away still yields a finite ready time. Returns false when no
// pending assignment brings the tail to the origin at all.
func (e *Engine) aircraftReady(f *Flight, tail string) (time.Time, bool) {
	as, ok := e.res.aircraft[tail]
	if !ok {
		return time.Time{}, false
	}

	loc, avail := as.Location, as.AvailableAt
	if as.Bound != 0 {
		g := e.flights[as.Bound]
		loc = g.Plan.Dest
		avail = g.ActArrive.Add(e.cfg.AircraftTurnaround)
	}
	if loc == f.Plan.Origin {
		return avail, true
	}
	for _, g := range e.pendingByTail(tail, f.Plan.ID) {
		if g.Plan.Origin != loc {
			continue
		}
		dep := g.projectedDeparture()
		if dep.Before(avail) {
			dep = avail
		}
		avail = dep.Add(g.Plan.BlockTime()).Add(e.cfg.AircraftTurnaround)
		loc = g.Plan.Dest
		if loc == f.Plan.Origin {
			return avail, true
		}
	}
	return time.Time{}, false
}

// pilotReady computes when f's assigned pilot can be at the origin, legal to
// fly the leg. Flights with no pilot assigned are always crew-ready.
func (e *Engine) pilotReady(f *Flight) (time.Time, bool) {
	if f.Pilot == 0 {
		return e.cfg.Start, true
	}
	return e.crewReady(f, f.Pilot)
}

func (e *Engine) crewReady(f *Flight, id model.CrewID) (time.Time, bool) {
	cs, ok := e.res.crew[id]
	if !ok {
		return time.Time{}, false
	}

	loc, avail := cs.Location, cs.AvailableAt
	if cs.Bound != 0 {
		g := e.flights[cs.Bound]
		loc = g.Plan.Dest
		avail = g.ActArrive.Add(e.cfg.CrewTurnaround)
		if cs.deadhead && !e.cfg.WaitForDeadheaders {
			return time.Time{}, false
		}
	}
	if loc != f.Plan.Origin {
		// Follow the crew member's pending itinerary: legs they pilot, plus
		// deadhead rides when the scenario waits for deadheaders.
		found := false
		for _, g := range e.pendingByCrew(id, f.Plan.ID) {
			if g.Plan.Origin != loc {
				continue
			}
			dep := g.projectedDeparture()
			if dep.Before(avail) {
				dep = avail
			}
			avail = dep.Add(g.Plan.BlockTime()).Add(e.cfg.CrewTurnaround)
			loc = g.Plan.Dest
			if loc == f.Plan.Origin {
				found = true
				break
			}
		}
		if !found {
			return time.Time{}, false
		}
	}

	dep := avail
	if sched := f.Plan.SchedDepart; dep.Before(sched) {
		dep = sched
	}
	if !e.res.crewLegalFor(id, dep, dep.Add(f.Plan.BlockTime())) {
		return time.Time{}, false
	}
	return avail, true
}

// findAircraftSub searches spare aircraft on the ground at f's origin that
// match the original plan's type and capacity and are available within the
// tolerance window. The configured selector strategy picks among them.
func (e *Engine) findAircraftSub(f *Flight, deadline time.Time) (string, bool) {
	orig := e.sc.Fleet[f.Plan.Tail]
	var cands []Candidate
	for _, tail := range e.tailOrder {
		if tail == f.Tail {
			continue
		}
		as := e.res.aircraft[tail]
		if as.Bound != 0 || as.Location != f.Plan.Origin {
			continue
		}
		if as.info.TypeName != orig.TypeName || as.info.Capacity < orig.Capacity {
			continue
		}
		if as.AvailableAt.After(deadline) {
			continue
		}
		if e.tailPlanned(tail, f.Plan.ID) {
			continue
		}
		cands = append(cands, Candidate{ID: tail, AvailableAt: as.AvailableAt})
	}
	c, ok := e.acSel.Pick(cands)
	return c.ID, ok
}

// findCrewSub searches spare crew for a substitute pilot: on the ground at
// the origin, or inbound as deadheaders when the scenario waits for them.
func (e *Engine) findCrewSub(f *Flight, deadline time.Time) (model.CrewID, bool) {
	var cands []Candidate
	byID := make(map[string]model.CrewID)
	for _, id := range e.crewOrder {
		if id == f.Pilot {
			continue
		}
		if e.crewPlanned(id, f.Plan.ID) {
			continue
		}
		ready, ok := e.crewReady(f, id)
		if !ok || ready.After(deadline) {
			continue
		}
		key := crewKey(id)
		byID[key] = id
		cands = append(cands, Candidate{ID: key, AvailableAt: ready})
	}
	c, ok := e.crewSel.Pick(cands)
	if !ok {
		return 0, false
	}
	return byID[c.ID], true
}

// deferFlight pushes the flight's projected departure to at, cancelling
// instead once the resulting delay exceeds the scenario ceiling.
func (e *Engine) deferFlight(f *Flight, at time.Time, reason model.DelayReason) {
	now := e.clock.now
	if !at.After(now) {
		// Same-bucket congestion: retry on the next minute step.
		at = now.Add(time.Minute)
	}
	delay := at.Sub(f.Plan.SchedDepart)
	if delay > e.cfg.MaxDelay {
		e.cancel(f, "projected delay "+delay.String()+" exceeds ceiling ("+string(reason)+")")
		return
	}
	if delay > f.Delay {
		f.Delay = delay
	}
	f.Status = model.FlightDelayed
	e.emit(model.Event{Time: now, Type: model.EventFlightDelayed, Flight: f.Plan.ID,
		Airport: f.Plan.Origin, Delay: f.Delay, Reason: string(reason)})
	e.clock.schedule(&event{at: at, kind: evFlightReady, flight: f.Plan.ID})
}

func (e *Engine) depart(f *Flight, dep, arr time.Time) {
	if err := e.res.bindAircraft(f.Tail, f.Plan.ID, dep, arr); err != nil {
		e.fail(err)
		return
	}
	if f.Pilot != 0 {
		if err := e.res.bindCrew(f.Pilot, f.Plan.ID, dep, arr, false); err != nil {
			e.res.release(f.Tail, 0)
			e.fail(err)
			return
		}
	}
	var riders []model.CrewID
	for _, id := range f.Deadheaders {
		cs, ok := e.res.crew[id]
		if !ok || cs.Bound != 0 || cs.Location != f.Plan.Origin || cs.AvailableAt.After(dep) {
			// A deadheader that missed the flight simply stays behind.
			continue
		}
		if err := e.res.bindCrew(id, f.Plan.ID, dep, arr, true); err != nil {
			e.fail(err)
			return
		}
		riders = append(riders, id)
	}
	f.Deadheaders = riders

	f.Status = model.FlightDeparted
	f.ActDepart = dep
	f.ActArrive = arr
	f.Delay = dep.Sub(f.Plan.SchedDepart)

	e.emit(model.Event{Time: dep, Type: model.EventFlightDeparted, Flight: f.Plan.ID,
		Tail: f.Tail, Crew: f.Pilot, Airport: f.Plan.Origin, Delay: f.Delay})

	e.clock.schedule(&event{at: arr, kind: evAircraftFree, tail: f.Tail, flight: f.Plan.ID})
	if f.Pilot != 0 {
		e.clock.schedule(&event{at: arr, kind: evCrewFree, crew: f.Pilot, flight: f.Plan.ID})
	}
	for _, id := range riders {
		e.clock.schedule(&event{at: arr, kind: evCrewFree, crew: id, flight: f.Plan.ID})
	}
}

// cancel terminates the flight and pushes every downstream flight that
// depends on its resources through the dispatcher again via the work list.
func (e *Engine) cancel(f *Flight, reason string) {
	now := e.clock.now
	f.Status = model.FlightCancelled
	f.CancelReason = reason
	e.emit(model.Event{Time: now, Type: model.EventFlightCancelled, Flight: f.Plan.ID,
		Airport: f.Plan.Origin, Delay: f.Delay, Reason: reason})

	for _, gid := range e.order {
		if gid == f.Plan.ID {
			continue
		}
		g := e.flights[gid]
		if g.Status.Terminal() || g.Status == model.FlightDeparted {
			continue
		}
		if g.Tail != f.Tail && (f.Pilot == 0 || g.Pilot != f.Pilot) {
			continue
		}
		at := g.Plan.SchedDepart
		if at.Before(now) {
			at = now
		}
		e.clock.schedule(&event{at: at, kind: evFlightReady, flight: gid})
	}
}

func (e *Engine) handleAircraftFree(ev *event) {
	as, ok := e.res.aircraft[ev.tail]
	if !ok || as.Bound != ev.flight {
		return
	}
	f := e.flights[ev.flight]
	e.res.landAircraft(ev.tail, f.Plan.Dest, f.ActDepart, f.ActArrive)
	if f.Status == model.FlightDeparted {
		f.Status = model.FlightCompleted
		e.emit(model.Event{Time: e.clock.now, Type: model.EventFlightArrived,
			Flight: f.Plan.ID, Tail: ev.tail, Airport: f.Plan.Dest, Delay: f.Delay})
	}
}

func (e *Engine) handleCrewFree(ev *event) {
	cs, ok := e.res.crew[ev.crew]
	if !ok || cs.Bound != ev.flight {
		return
	}
	f := e.flights[ev.flight]
	e.res.landCrew(ev.crew, f.Plan.Dest, f.ActDepart, f.ActArrive)
}

// pendingByTail returns non-terminal, not-yet-departed flights currently
// assigned to tail, in scheduled departure order.
func (e *Engine) pendingByTail(tail string, except model.FlightID) []*Flight {
	var out []*Flight
	for _, id := range e.order {
		g := e.flights[id]
		if id == except || g.Tail != tail {
			continue
		}
		if g.Status.Terminal() || g.Status == model.FlightDeparted {
			continue
		}
		out = append(out, g)
	}
	sortBySched(out)
	return out
}

// pendingByCrew returns pending legs the crew member is assigned to: legs
// they pilot, plus deadhead rides when the scenario waits for deadheaders.
func (e *Engine) pendingByCrew(id model.CrewID, except model.FlightID) []*Flight {
	var out []*Flight
	for _, fid := range e.order {
		g := e.flights[fid]
		if fid == except || g.Status.Terminal() || g.Status == model.FlightDeparted {
			continue
		}
		if g.Pilot == id {
			out = append(out, g)
			continue
		}
		if e.cfg.WaitForDeadheaders {
			for _, dh := range g.Deadheaders {
				if dh == id {
					out = append(out, g)
					break
				}
			}
		}
	}
	sortBySched(out)
	return out
}

// tailPlanned reports whether the tail is the current assignment of any
// pending flight other than fid. Substitution takes spare aircraft only.
func (e *Engine) tailPlanned(tail string, fid model.FlightID) bool {
	for _, id := range e.order {
		g := e.flights[id]
		if id == fid || g.Status.Terminal() || g.Status == model.FlightDeparted {
			continue
		}
		if g.Tail == tail {
			return true
		}
	}
	return false
}

func (e *Engine) crewPlanned(id model.CrewID, fid model.FlightID) bool {
	for _, gid := range e.order {
		g := e.flights[gid]
		if gid == fid || g.Status.Terminal() || g.Status == model.FlightDeparted {
			continue
		}
		if g.Pilot == id {
			return true
		}
	}
	return false
}

func sortBySched(flights []*Flight) {
	sort.Slice(flights, func(i, j int) bool {
		a, b := flights[i], flights[j]
		if !a.Plan.SchedDepart.Equal(b.Plan.SchedDepart) {
			return a.Plan.SchedDepart.Before(b.Plan.SchedDepart)
		}
		return a.Plan.ID < b.Plan.ID
	})
}
