package sim

import (
	"time"

	"airline_recovery/internal/model"
)

// direction distinguishes departure and arrival slot pools.
type direction int

const (
	departure direction = iota
	arrival
)

// airportSlots tracks per-hour movement counts for one airport. A consumed
// slot models irrevocable throughput usage: there is no release, buckets
// simply age out as the clock rolls past them.
type airportSlots struct {
	maxDep, maxArr int

	// used counts per hour bucket (unix seconds of the truncated hour).
	depUsed, arrUsed map[int64]int

	// disruptions constraining this airport, fixed at build time. The
	// effective cap for a bucket is derived from these windows on every
	// lookup, so overlapping windows and reservations made before a
	// window's boundary event both see the correct reduced rate.
	disruptions []model.Disruption
}

// slotLedger enforces per-airport hourly departure/arrival capacity, adjusted
// downward by active disruptions.
type slotLedger struct {
	airports map[model.AirportCode]*airportSlots
}

func newSlotLedger(sc *model.Scenario) *slotLedger {
	l := &slotLedger{airports: make(map[model.AirportCode]*airportSlots, len(sc.Airports))}
	for code, ap := range sc.Airports {
		l.airports[code] = &airportSlots{
			maxDep:  ap.MaxDepPerHour,
			maxArr:  ap.MaxArrPerHour,
			depUsed: make(map[int64]int),
			arrUsed: make(map[int64]int),
		}
	}
	for _, d := range sc.Disruptions {
		if s, ok := l.airports[d.Airport]; ok {
			s.disruptions = append(s.disruptions, d)
		}
	}
	return l
}

func hourBucket(t time.Time) int64 {
	return t.Truncate(time.Hour).Unix()
}

// capAt is the lowest rate over the configured maximum and every disruption
// window overlapping the bucket. The window is [Start, End): the bucket
// containing End is affected only if End is not on the hour.
func (s *airportSlots) capAt(dir direction, bucket int64) int {
	c := s.maxDep
	want := model.DisruptDepartures
	if dir == arrival {
		c = s.maxArr
		want = model.DisruptArrivals
	}
	for _, d := range s.disruptions {
		if d.Kind != want {
			continue
		}
		if bucket < hourBucket(d.Start) || bucket > hourBucket(d.End.Add(-time.Second)) {
			continue
		}
		if d.HourlyRate < c {
			c = d.HourlyRate
		}
	}
	return c
}

func (s *airportSlots) used(dir direction) map[int64]int {
	if dir == departure {
		return s.depUsed
	}
	return s.arrUsed
}

// canReserve reports whether t's hour bucket has spare capacity, without
// consuming anything.
func (l *slotLedger) canReserve(code model.AirportCode, dir direction, t time.Time) bool {
	s, ok := l.airports[code]
	if !ok {
		return false
	}
	bucket := hourBucket(t)
	return s.used(dir)[bucket] < s.capAt(dir, bucket)
}

// consume charges one movement against t's hour bucket. Callers check
// canReserve first.
func (l *slotLedger) consume(code model.AirportCode, dir direction, t time.Time) {
	if s, ok := l.airports[code]; ok {
		s.used(dir)[hourBucket(t)]++
	}
}

// tryReserve consumes one slot in t's hour bucket if the disruption-adjusted
// cap allows it.
func (l *slotLedger) tryReserve(code model.AirportCode, dir direction, t time.Time) bool {
	if !l.canReserve(code, dir, t) {
		return false
	}
	l.consume(code, dir, t)
	return true
}

// nextOpen returns the earliest time at or after from with spare capacity,
// scanning hour buckets up to horizon. Returns false if every bucket in range
// is saturated (or zero-capped).
func (l *slotLedger) nextOpen(code model.AirportCode, dir direction, from, horizon time.Time) (time.Time, bool) {
	s, ok := l.airports[code]
	if !ok {
		return time.Time{}, false
	}
	used := s.used(dir)
	for bucket := hourBucket(from); bucket <= hourBucket(horizon); bucket += 3600 {
		if used[bucket] < s.capAt(dir, bucket) {
			open := time.Unix(bucket, 0).UTC()
			if open.Before(from) {
				open = from
			}
			return open, true
		}
	}
	return time.Time{}, false
}
