// Package sim is the disruption-recovery engine: a deterministic
// discrete-event simulation of an airline schedule under airport capacity
// disruptions, with resource substitution and a delay/cancel policy.
package sim

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"airline_recovery/internal/metrics"
	"airline_recovery/internal/model"
)

// ErrMissingReference means a flight plan names an aircraft or crew member
// that is not part of the scenario. The loader enforces this, but hand-built
// scenarios go through New directly.
var ErrMissingReference = errors.New("missing referenced entity")

// Engine runs one scenario to completion. All mutable ledgers are owned by
// the engine instance; concurrent scenario runs each get their own engine
// and share nothing.
type Engine struct {
	sc  *model.Scenario
	cfg model.Config

	clock *clock
	res   *resourceLedger
	slots *slotLedger

	flights   map[model.FlightID]*Flight
	order     []model.FlightID // ascending flight id
	tailOrder []string         // ascending tail
	crewOrder []model.CrewID   // ascending crew id

	acSel   Selector
	crewSel Selector

	observers []model.Observer
	acc       *metrics.Accumulator

	failure error
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers an additional event observer. Observers are called
// synchronously in registration order.
func WithObserver(o model.Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithMaxDelay overrides the scenario's cancellation ceiling. Used by the
// sweep driver to compare policies on one loaded scenario.
func WithMaxDelay(d time.Duration) Option {
	return func(e *Engine) { e.cfg.MaxDelay = d }
}

// New prepares an engine for the given scenario. The scenario snapshot is
// not mutated; all dynamic state lives in the engine.
func New(sc *model.Scenario, opts ...Option) (*Engine, error) {
	acSel, ok := LookupSelector(sc.Config.AircraftSelector)
	if !ok {
		return nil, fmt.Errorf("aircraft selector %q: %w", sc.Config.AircraftSelector, ErrUnknownSelector)
	}
	crewSel, ok := LookupSelector(sc.Config.CrewSelector)
	if !ok {
		return nil, fmt.Errorf("crew selector %q: %w", sc.Config.CrewSelector, ErrUnknownSelector)
	}

	e := &Engine{
		sc:      sc,
		cfg:     sc.Config,
		res:     newResourceLedger(sc),
		slots:   newSlotLedger(sc),
		flights: make(map[model.FlightID]*Flight, len(sc.Flights)),
		acSel:   acSel,
		crewSel: crewSel,
		acc:     metrics.NewAccumulator(),
	}
	for _, p := range sc.Flights {
		if _, ok := sc.Fleet[p.Tail]; !ok {
			return nil, fmt.Errorf("flight %d: aircraft %q: %w", p.ID, p.Tail, ErrMissingReference)
		}
		if p.Pilot != 0 {
			if _, ok := sc.Crew[p.Pilot]; !ok {
				return nil, fmt.Errorf("flight %d: pilot %d: %w", p.ID, p.Pilot, ErrMissingReference)
			}
		}
		e.flights[p.ID] = newFlight(p)
		e.order = append(e.order, p.ID)
	}
	sort.Slice(e.order, func(i, j int) bool { return e.order[i] < e.order[j] })
	for tail := range sc.Fleet {
		e.tailOrder = append(e.tailOrder, tail)
	}
	sort.Strings(e.tailOrder)
	for id := range sc.Crew {
		e.crewOrder = append(e.crewOrder, id)
	}
	sort.Slice(e.crewOrder, func(i, j int) bool { return e.crewOrder[i] < e.crewOrder[j] })

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// horizon is the hard end of simulated time: flights still pending past it
// are force-cancelled.
func (e *Engine) horizon() time.Time {
	return e.cfg.End.Add(e.cfg.MaxDelay)
}

// Run drives the event queue from scenario start to the horizon and returns
// the final snapshot. It returns an error only for load-level misconfiguration
// or a detected invariant violation; delays and cancellations are normal
// outcomes reported in the result.
func (e *Engine) Run() (*Result, error) {
	e.clock = newClock(e.cfg.Start)

	for _, id := range e.order {
		f := e.flights[id]
		e.clock.schedule(&event{at: f.Plan.SchedDepart, kind: evFlightReady, flight: id})
	}
	for i, d := range e.sc.Disruptions {
		e.clock.schedule(&event{at: d.Start, kind: evDisruptionStart, disruption: i})
		e.clock.schedule(&event{at: d.End, kind: evDisruptionEnd, disruption: i})
	}

	for {
		ev, ok := e.clock.pop()
		if !ok || e.failure != nil {
			break
		}
		if ev.kind == evFlightReady && ev.at.After(e.horizon()) {
			f := e.flights[ev.flight]
			if !f.Status.Terminal() && f.Status != model.FlightDeparted {
				e.cancel(f, "still pending at horizon ("+string(model.DelayHorizonExceeded)+")")
			}
			continue
		}
		switch ev.kind {
		case evFlightReady:
			e.handleFlightReady(e.flights[ev.flight])
		case evAircraftFree:
			e.handleAircraftFree(ev)
		case evCrewFree:
			e.handleCrewFree(ev)
		case evDisruptionStart:
			// Boundary events are notifications only; the slot ledger derives
			// effective caps from the disruption windows themselves.
			d := e.sc.Disruptions[ev.disruption]
			e.emit(model.Event{Time: e.clock.now, Type: model.EventDisruptionStarted,
				Airport: d.Airport, Reason: d.Reason})
		case evDisruptionEnd:
			d := e.sc.Disruptions[ev.disruption]
			e.emit(model.Event{Time: e.clock.now, Type: model.EventDisruptionEnded,
				Airport: d.Airport, Reason: d.Reason})
		}
	}
	if e.failure != nil {
		return nil, e.failure
	}

	// Teardown: nothing may remain non-terminal.
	for _, id := range e.order {
		f := e.flights[id]
		switch {
		case f.Status.Terminal():
		case f.Status == model.FlightDeparted:
			// Landed past the horizon; settle the books.
			e.res.release(f.Tail, f.Pilot)
			f.Status = model.FlightCompleted
		default:
			f.Status = model.FlightCancelled
			f.CancelReason = "still pending at horizon (" + string(model.DelayHorizonExceeded) + ")"
			e.emit(model.Event{Time: e.clock.now, Type: model.EventFlightCancelled,
				Flight: id, Reason: f.CancelReason})
		}
	}

	return e.buildResult(), nil
}

func (e *Engine) emit(ev model.Event) {
	e.acc.OnEvent(ev)
	for _, o := range e.observers {
		o.OnEvent(ev)
	}
}

func (e *Engine) fail(err error) {
	if e.failure == nil {
		e.failure = err
	}
}

func crewKey(id model.CrewID) string {
	return fmt.Sprintf("%012d", id)
}
