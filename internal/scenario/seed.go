package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"airline_recovery/internal/model"
)

// Insert writes a scenario snapshot into the store, replacing any existing
// scenario with the same id. Used by the seed command and by tests.
func (s *Store) Insert(ctx context.Context, sc *model.Scenario) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scenarios WHERE sid = ?`, sc.ID); err != nil {
		return fmt.Errorf("clear scenario: %w", err)
	}

	cfg := sc.Config
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scenarios (sid, name, start_time, end_time,
			crew_turnaround_time, aircraft_turnaround_time, max_delay,
			aircraft_selector, crew_selector, wait_for_deadheaders,
			aircraft_reassign_tolerance, crew_reassign_tolerance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, FormatTime(cfg.Start), FormatTime(cfg.End),
		int(cfg.CrewTurnaround.Minutes()), int(cfg.AircraftTurnaround.Minutes()),
		int(cfg.MaxDelay.Minutes()),
		nullIfEmpty(cfg.AircraftSelector), nullIfEmpty(cfg.CrewSelector),
		boolToInt(cfg.WaitForDeadheaders),
		int(cfg.AircraftReassignTolerance.Minutes()), int(cfg.CrewReassignTolerance.Minutes()))
	if err != nil {
		return fmt.Errorf("insert scenario: %w", err)
	}

	for _, code := range sortedAirportCodes(sc) {
		ap := sc.Airports[code]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO airports (code, max_dep_per_hour, max_arr_per_hour, latitude, longitude, sid)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ap.Code, ap.MaxDepPerHour, ap.MaxArrPerHour, ap.Latitude, ap.Longitude, sc.ID)
		if err != nil {
			return fmt.Errorf("insert airport %s: %w", ap.Code, err)
		}
	}

	for _, tail := range sortedTails(sc) {
		ac := sc.Fleet[tail]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO aircraft (tail, location, typename, capacity, sid)
			VALUES (?, ?, ?, ?, ?)`,
			ac.Tail, ac.Home, ac.TypeName, ac.Capacity, sc.ID)
		if err != nil {
			return fmt.Errorf("insert aircraft %s: %w", ac.Tail, err)
		}
	}

	for _, id := range sortedCrewIDs(sc) {
		c := sc.Crew[id]
		_, err := tx.ExecContext(ctx, `INSERT INTO crew (id, location, sid) VALUES (?, ?, ?)`,
			c.ID, c.Home, sc.ID)
		if err != nil {
			return fmt.Errorf("insert crew %d: %w", c.ID, err)
		}
	}

	for _, p := range sc.Flights {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO flights (id, flight_number, aircraft, origin, dest, pilot,
				sched_depart, sched_arrive, sid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, nullIfEmpty(p.Number), p.Tail, p.Origin, p.Dest, nullIfZero(int64(p.Pilot)),
			FormatTime(p.SchedDepart), FormatTime(p.SchedArrive), sc.ID)
		if err != nil {
			return fmt.Errorf("insert flight %d: %w", p.ID, err)
		}
		for _, cid := range p.Deadheaders {
			_, err := tx.ExecContext(ctx, `INSERT INTO deadheaders (id, sid, fid) VALUES (?, ?, ?)`,
				cid, sc.ID, p.ID)
			if err != nil {
				return fmt.Errorf("insert deadheader %d on flight %d: %w", cid, p.ID, err)
			}
		}
	}

	for _, d := range sc.Demand {
		legs := make([]string, len(d.Path))
		for i, code := range d.Path {
			legs[i] = string(code)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO demand (path, amount, sid) VALUES (?, ?, ?)`,
			strings.Join(legs, "-"), d.Count, sc.ID)
		if err != nil {
			return fmt.Errorf("insert demand: %w", err)
		}
	}

	for _, d := range sc.Disruptions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO disruptions (airport, start, "end", hourly_rate, type, reason, sid)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.Airport, FormatTime(d.Start), FormatTime(d.End), d.HourlyRate,
			d.Kind.String(), nullIfEmpty(d.Reason), sc.ID)
		if err != nil {
			return fmt.Errorf("insert disruption: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}

// Few returns the built-in five-airport fixture scenario: three aircraft,
// three crew, four flights forming two rotations, no disruptions. With the
// default config every flight departs on schedule.
func Few(sid string) *model.Scenario {
	day := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	sc := &model.Scenario{
		ID:   sid,
		Name: "few",
		Config: model.Config{
			Start:                     at(6, 0),
			End:                       at(30, 0),
			CrewTurnaround:            30 * time.Minute,
			AircraftTurnaround:        30 * time.Minute,
			MaxDelay:                  360 * time.Minute,
			AircraftSelector:          "dfs",
			CrewSelector:              "dfs",
			WaitForDeadheaders:        false,
			AircraftReassignTolerance: 60 * time.Minute,
			CrewReassignTolerance:     60 * time.Minute,
		},
		Airports: map[model.AirportCode]*model.Airport{
			"DEN": {Code: "DEN", MaxDepPerHour: 114, MaxArrPerHour: 114, Latitude: 39.86, Longitude: -104.67},
			"MDW": {Code: "MDW", MaxDepPerHour: 36, MaxArrPerHour: 36, Latitude: 41.79, Longitude: -87.75},
			"DAL": {Code: "DAL", MaxDepPerHour: 67, MaxArrPerHour: 67, Latitude: 32.85, Longitude: -96.85},
			"SAN": {Code: "SAN", MaxDepPerHour: 24, MaxArrPerHour: 24, Latitude: 32.73, Longitude: -117.19},
			"LAS": {Code: "LAS", MaxDepPerHour: 44, MaxArrPerHour: 44, Latitude: 36.08, Longitude: -115.15},
		},
		Fleet: map[string]*model.Aircraft{
			"N801SW": {Tail: "N801SW", Home: "DEN", TypeName: "B738", Capacity: 170},
			"N802SW": {Tail: "N802SW", Home: "DEN", TypeName: "B738", Capacity: 170},
			"N803SW": {Tail: "N803SW", Home: "SAN", TypeName: "B738", Capacity: 170},
		},
		Crew: map[model.CrewID]*model.Crew{
			1: {ID: 1, Home: "DEN"},
			2: {ID: 2, Home: "DEN"},
			3: {ID: 3, Home: "SAN"},
		},
		Flights: []*model.FlightPlan{
			{ID: 1, Number: "WN100", Tail: "N801SW", Pilot: 1, Origin: "DEN", Dest: "LAS",
				SchedDepart: at(8, 0), SchedArrive: at(10, 10)},
			{ID: 2, Number: "WN200", Tail: "N802SW", Pilot: 2, Origin: "DEN", Dest: "MDW",
				SchedDepart: at(9, 0), SchedArrive: at(12, 30)},
			{ID: 3, Number: "WN300", Tail: "N803SW", Pilot: 3, Origin: "SAN", Dest: "DAL",
				SchedDepart: at(8, 30), SchedArrive: at(11, 30)},
			{ID: 4, Number: "WN400", Tail: "N803SW", Pilot: 3, Origin: "DAL", Dest: "MDW",
				SchedDepart: at(12, 30), SchedArrive: at(14, 30)},
		},
		Demand: []model.Demand{
			{Path: []model.AirportCode{"DEN", "LAS"}, Count: 120},
			{Path: []model.AirportCode{"DEN", "MDW"}, Count: 100},
			{Path: []model.AirportCode{"SAN", "DAL", "MDW"}, Count: 80},
		},
	}
	return sc
}

func sortedAirportCodes(sc *model.Scenario) []model.AirportCode {
	codes := make([]model.AirportCode, 0, len(sc.Airports))
	for code := range sc.Airports {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func sortedTails(sc *model.Scenario) []string {
	tails := make([]string, 0, len(sc.Fleet))
	for tail := range sc.Fleet {
		tails = append(tails, tail)
	}
	sort.Strings(tails)
	return tails
}

func sortedCrewIDs(sc *model.Scenario) []model.CrewID {
	ids := make([]model.CrewID, 0, len(sc.Crew))
	for id := range sc.Crew {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
