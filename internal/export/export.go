// Package export writes completed simulation results to tabular and JSON
// output files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"airline_recovery/internal/sim"
)

const timeFormat = "2006-01-02 15:04:05"

// WriteFiles writes the tabular result files named by prefix:
// <prefix>-flights.csv, <prefix>-aircraft.csv, <prefix>-crew.csv and
// <prefix>-metrics.csv.
func WriteFiles(res *sim.Result, prefix string) error {
	writers := []struct {
		suffix string
		fn     func(*sim.Result, io.Writer) error
	}{
		{"-flights.csv", WriteFlights},
		{"-aircraft.csv", WriteAircraft},
		{"-crew.csv", WriteCrew},
		{"-metrics.csv", WriteMetrics},
	}
	for _, w := range writers {
		f, err := os.Create(prefix + w.suffix)
		if err != nil {
			return fmt.Errorf("create %s%s: %w", prefix, w.suffix, err)
		}
		err = w.fn(res, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write %s%s: %w", prefix, w.suffix, err)
		}
	}
	return nil
}

// WriteJSON writes the full snapshot (entity states plus metrics) as JSON.
func WriteJSON(res *sim.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteFlights writes the per-flight outcome table.
func WriteFlights(res *sim.Result, w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "flight_number", "tail", "pilot", "origin", "dest",
		"status", "cancelled", "dep_time", "arr_time", "sched_dep", "sched_arr", "delay_min"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, f := range res.Flights {
		cancelled := "0"
		if f.Status == "cancelled" {
			cancelled = "1"
		}
		rec := []string{
			strconv.FormatInt(int64(f.ID), 10),
			f.Number,
			f.Tail,
			strconv.FormatInt(int64(f.Pilot), 10),
			string(f.Origin),
			string(f.Dest),
			f.Status,
			cancelled,
			formatMaybe(f.ActDepart),
			formatMaybe(f.ActArrive),
			f.SchedDepart.UTC().Format(timeFormat),
			f.SchedArrive.UTC().Format(timeFormat),
			strconv.Itoa(f.DelayMin),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAircraft writes the per-aircraft utilization table.
func WriteAircraft(res *sim.Result, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tail", "typename", "capacity", "start_location",
		"end_location", "flights_flown", "busy_min"}); err != nil {
		return err
	}
	for _, a := range res.Aircraft {
		rec := []string{a.Tail, a.TypeName, strconv.Itoa(a.Capacity),
			string(a.Start), string(a.End), strconv.Itoa(a.FlightsFlown), strconv.Itoa(a.BusyMin)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCrew writes the per-crew utilization table.
func WriteCrew(res *sim.Result, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "start_location", "end_location", "legs_flown", "busy_min"}); err != nil {
		return err
	}
	for _, c := range res.Crew {
		rec := []string{strconv.FormatInt(int64(c.ID), 10), string(c.Start),
			string(c.End), strconv.Itoa(c.LegsFlown), strconv.Itoa(c.BusyMin)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetrics writes the aggregate summary as key/value rows.
func WriteMetrics(res *sim.Result, w io.Writer) error {
	m := res.Metrics
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"metric", "value"},
		{"flights_total", strconv.Itoa(m.FlightsTotal)},
		{"on_time", strconv.Itoa(m.OnTime)},
		{"delayed", strconv.Itoa(m.Delayed)},
		{"cancelled", strconv.Itoa(m.Cancelled)},
		{"aircraft_substitutions", strconv.Itoa(m.AircraftSubstitutions)},
		{"crew_substitutions", strconv.Itoa(m.CrewSubstitutions)},
		{"disruptions_applied", strconv.Itoa(m.DisruptionsApplied)},
		{"total_delay_min", strconv.Itoa(m.TotalDelayMin)},
		{"avg_delay_min", strconv.FormatFloat(m.AvgDelayMin, 'f', 2, 64)},
		{"aircraft_utilization", strconv.FormatFloat(m.AircraftUtilization, 'f', 4, 64)},
		{"crew_utilization", strconv.FormatFloat(m.CrewUtilization, 'f', 4, 64)},
		{"passengers_total", strconv.Itoa(m.PassengersTotal)},
		{"passengers_displaced", strconv.Itoa(m.PassengersDisplaced)},
	}
	for _, rec := range rows {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatMaybe(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeFormat)
}
