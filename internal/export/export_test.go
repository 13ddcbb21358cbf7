package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"airline_recovery/internal/metrics"
	"airline_recovery/internal/sim"
)

func sampleResult() *sim.Result {
	dep := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	arr := dep.Add(2 * time.Hour)
	return &sim.Result{
		ScenarioID:   "few",
		ScenarioName: "few",
		MaxDelayMin:  360,
		Flights: []sim.FlightRecord{
			{ID: 1, Number: "WN100", Tail: "N801SW", Pilot: 1, Origin: "DEN", Dest: "LAS",
				Status: "completed", SchedDepart: dep.Add(-30 * time.Minute), SchedArrive: arr,
				ActDepart: &dep, ActArrive: &arr, DelayMin: 30},
			{ID: 2, Number: "WN200", Tail: "N802SW", Origin: "DEN", Dest: "MDW",
				Status: "cancelled", SchedDepart: dep, SchedArrive: arr,
				CancelReason: "no aircraft available at DEN"},
		},
		Aircraft: []sim.AircraftRecord{
			{Tail: "N801SW", TypeName: "B738", Capacity: 170, Start: "DEN", End: "LAS",
				FlightsFlown: 1, BusyMin: 120},
		},
		Crew: []sim.CrewRecord{
			{ID: 1, Start: "DEN", End: "LAS", LegsFlown: 1, BusyMin: 120},
		},
		Metrics: metrics.Metrics{FlightsTotal: 2, OnTime: 0, Delayed: 1, Cancelled: 1,
			TotalDelayMin: 30, AvgDelayMin: 30},
	}
}

func TestWriteFlights(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFlights(sampleResult(), &buf); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}

	header := strings.Join(rows[0], ",")
	want := "id,flight_number,tail,pilot,origin,dest,status,cancelled,dep_time,arr_time,sched_dep,sched_arr,delay_min"
	if header != want {
		t.Errorf("header = %s", header)
	}

	flown := rows[1]
	if flown[0] != "1" || flown[7] != "0" || flown[8] != "2025-03-01 09:00:00" || flown[12] != "30" {
		t.Errorf("flown row = %v", flown)
	}

	cancelled := rows[2]
	if cancelled[7] != "1" {
		t.Errorf("cancelled flag = %q, want 1", cancelled[7])
	}
	if cancelled[8] != "" || cancelled[9] != "" {
		t.Errorf("cancelled flight must have empty actual times: %v", cancelled)
	}
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMetrics(sampleResult(), &buf); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	vals := make(map[string]string, len(rows))
	for _, r := range rows[1:] {
		vals[r[0]] = r[1]
	}
	if vals["cancelled"] != "1" || vals["total_delay_min"] != "30" {
		t.Errorf("metrics rows = %v", vals)
	}
	if vals["avg_delay_min"] != "30.00" {
		t.Errorf("avg_delay_min = %q", vals["avg_delay_min"])
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(sampleResult(), &buf); err != nil {
		t.Fatal(err)
	}

	var got sim.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ScenarioID != "few" || len(got.Flights) != 2 {
		t.Errorf("round trip lost data: %+v", got)
	}
	if got.Flights[1].ActDepart != nil {
		t.Error("cancelled flight must have no actual departure")
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run1")
	if err := WriteFiles(sampleResult(), prefix); err != nil {
		t.Fatal(err)
	}

	for _, suffix := range []string{"-flights.csv", "-aircraft.csv", "-crew.csv", "-metrics.csv"} {
		info, err := os.Stat(prefix + suffix)
		if err != nil {
			t.Errorf("%s: %v", suffix, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", suffix)
		}
	}
}
