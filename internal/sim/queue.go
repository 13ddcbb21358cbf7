package sim

import (
	"container/heap"
	"time"

	"airline_recovery/internal/model"
)

// eventKind orders simultaneous events: flight-ready first, then resource
// availability (aircraft before crew), then disruption boundaries. Within a
// kind, events order by the entity's natural key. The total order makes
// replays of a scenario bit-for-bit reproducible.
type eventKind int

const (
	evFlightReady eventKind = iota + 1
	evAircraftFree
	evCrewFree
	evDisruptionStart
	evDisruptionEnd
)

type event struct {
	at         time.Time
	kind       eventKind
	flight     model.FlightID
	tail       string
	crew       model.CrewID
	disruption int
}

func (a *event) before(b *event) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	if a.flight != b.flight {
		return a.flight < b.flight
	}
	if a.tail != b.tail {
		return a.tail < b.tail
	}
	if a.crew != b.crew {
		return a.crew < b.crew
	}
	return a.disruption < b.disruption
}

type eventHeap []*event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].before(h[j]) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)         { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}

// clock is the logical simulation clock: a min-ordered event queue. Time
// advances only by popping events; no wall time is involved.
type clock struct {
	events eventHeap
	now    time.Time
}

func newClock(start time.Time) *clock {
	return &clock{now: start}
}

func (c *clock) schedule(ev *event) {
	if ev.at.Before(c.now) {
		ev.at = c.now
	}
	heap.Push(&c.events, ev)
}

// pop returns the next event and advances the clock, or false at end of
// horizon (empty queue).
func (c *clock) pop() (*event, bool) {
	if len(c.events) == 0 {
		return nil, false
	}
	ev := heap.Pop(&c.events).(*event)
	c.now = ev.at
	return ev, true
}
