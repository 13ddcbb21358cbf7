package sim

import (
	"testing"
	"time"

	"airline_recovery/internal/model"
)

func slotScenario(ds ...model.Disruption) *model.Scenario {
	return &model.Scenario{
		Airports: map[model.AirportCode]*model.Airport{
			"OAK": {Code: "OAK", MaxDepPerHour: 2, MaxArrPerHour: 1},
		},
		Disruptions: ds,
	}
}

func TestReserveExhaustsBucket(t *testing.T) {
	l := newSlotLedger(slotScenario())
	at := t0.Add(15 * time.Minute)

	if !l.tryReserve("OAK", departure, at) {
		t.Fatal("first reservation should succeed")
	}
	if !l.tryReserve("OAK", departure, at.Add(10*time.Minute)) {
		t.Fatal("second reservation should succeed")
	}
	if l.tryReserve("OAK", departure, at.Add(20*time.Minute)) {
		t.Error("third reservation in the same hour should fail")
	}
	// The next hour has its own budget.
	if !l.tryReserve("OAK", departure, at.Add(time.Hour)) {
		t.Error("next hour should be open")
	}
}

func TestArrivalPoolIsSeparate(t *testing.T) {
	l := newSlotLedger(slotScenario())

	if !l.tryReserve("OAK", arrival, t0) {
		t.Fatal("arrival reservation should succeed")
	}
	if l.tryReserve("OAK", arrival, t0) {
		t.Error("arrival cap is 1")
	}
	if !l.tryReserve("OAK", departure, t0) {
		t.Error("departures must not be charged for arrivals")
	}
}

func TestUnknownAirportNeverReserves(t *testing.T) {
	l := newSlotLedger(slotScenario())
	if l.tryReserve("XXX", departure, t0) {
		t.Error("unknown airport must not grant slots")
	}
}

func TestNextOpenSkipsFullBucket(t *testing.T) {
	l := newSlotLedger(slotScenario())
	l.tryReserve("OAK", departure, t0)
	l.tryReserve("OAK", departure, t0)

	horizon := t0.Add(12 * time.Hour)
	open, ok := l.nextOpen("OAK", departure, t0.Add(5*time.Minute), horizon)
	if !ok {
		t.Fatal("expected an open bucket")
	}
	want := t0.Add(time.Hour)
	if !open.Equal(want) {
		t.Errorf("nextOpen = %v, want %v", open, want)
	}
}

func TestNextOpenKeepsFromWithinOpenBucket(t *testing.T) {
	l := newSlotLedger(slotScenario())
	from := t0.Add(42 * time.Minute)
	open, ok := l.nextOpen("OAK", departure, from, t0.Add(time.Hour))
	if !ok || !open.Equal(from) {
		t.Errorf("nextOpen = %v %v, want %v true", open, ok, from)
	}
}

func TestGroundStopBlocksWindow(t *testing.T) {
	l := newSlotLedger(slotScenario(model.Disruption{
		Airport:    "OAK",
		Kind:       model.DisruptDepartures,
		HourlyRate: 0,
		Start:      t0,
		End:        t0.Add(2 * time.Hour),
	}))

	if l.tryReserve("OAK", departure, t0.Add(30*time.Minute)) {
		t.Error("ground stop must block the first hour")
	}
	if l.tryReserve("OAK", departure, t0.Add(90*time.Minute)) {
		t.Error("ground stop must block the second hour")
	}
	// End is exclusive: the bucket starting at End is unaffected.
	if !l.tryReserve("OAK", departure, t0.Add(2*time.Hour)) {
		t.Error("bucket at window end must stay open")
	}
	// The bucket before the window start is likewise untouched.
	if !l.tryReserve("OAK", departure, t0.Add(-30*time.Minute)) {
		t.Error("bucket before window start must stay open")
	}
	// Arrivals are untouched by a departure disruption.
	if !l.tryReserve("OAK", arrival, t0.Add(30*time.Minute)) {
		t.Error("arrival pool must be unaffected")
	}
}

func TestOverlappingDisruptionsKeepLowestRate(t *testing.T) {
	// Staggered windows: the mild reduction ends mid-stop; the stop must
	// keep holding every bucket its own window covers.
	l := newSlotLedger(slotScenario(
		model.Disruption{Airport: "OAK", Kind: model.DisruptDepartures,
			HourlyRate: 1, Start: t0, End: t0.Add(time.Hour)},
		model.Disruption{Airport: "OAK", Kind: model.DisruptDepartures,
			HourlyRate: 0, Start: t0.Add(30 * time.Minute), End: t0.Add(2 * time.Hour)},
	))

	if l.tryReserve("OAK", departure, t0) {
		t.Error("the lower rate must win while both windows cover the bucket")
	}
	if l.tryReserve("OAK", departure, t0.Add(90*time.Minute)) {
		t.Error("the stop must keep holding after the milder window ends")
	}
	if !l.tryReserve("OAK", departure, t0.Add(2*time.Hour)) {
		t.Error("bucket past both windows must be open")
	}
}

func TestCanReserveDoesNotConsume(t *testing.T) {
	l := newSlotLedger(slotScenario())
	for i := 0; i < 5; i++ {
		if !l.canReserve("OAK", departure, t0) {
			t.Fatal("capacity check must not consume the bucket")
		}
	}
	if !l.tryReserve("OAK", departure, t0) || !l.tryReserve("OAK", departure, t0) {
		t.Error("both slots must still be available after repeated checks")
	}
}

func TestRateReductionAllowsPartialFlow(t *testing.T) {
	l := newSlotLedger(slotScenario(model.Disruption{Airport: "OAK", Kind: model.DisruptDepartures,
		HourlyRate: 1, Start: t0, End: t0.Add(time.Hour)}))

	if !l.tryReserve("OAK", departure, t0) {
		t.Fatal("one movement per hour should be allowed")
	}
	if l.tryReserve("OAK", departure, t0.Add(time.Minute)) {
		t.Error("second movement must be rejected under the reduced rate")
	}

	open, ok := l.nextOpen("OAK", departure, t0.Add(time.Minute), t0.Add(3*time.Hour))
	if !ok || !open.Equal(t0.Add(time.Hour)) {
		t.Errorf("nextOpen = %v %v, want top of next hour", open, ok)
	}
}
