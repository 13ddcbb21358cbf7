// Package scenario reads simulation scenarios from a SQLite store.
package scenario

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"airline_recovery/internal/model"
	"airline_recovery/internal/sim"
)

// TimeFormat is the timestamp layout used throughout the store.
const TimeFormat = "2006-01-02 15:04:05"

// Store is an open scenario database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a scenario store at the given path and ensures the
// schema exists. Use ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Summary is a scenario header row.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List returns the id and name of every stored scenario.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sid, name FROM scenarios ORDER BY sid`)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Name); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Load materializes the scenario with the given id into an immutable
// in-memory snapshot, validating referential integrity and selector names.
func (s *Store) Load(ctx context.Context, sid string) (*model.Scenario, error) {
	sc := &model.Scenario{
		ID:       sid,
		Airports: make(map[model.AirportCode]*model.Airport),
		Fleet:    make(map[string]*model.Aircraft),
		Crew:     make(map[model.CrewID]*model.Crew),
	}

	if err := s.loadConfig(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.loadAirports(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.loadAircraft(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.loadCrew(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.loadFlights(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.loadDemand(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.loadDisruptions(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Store) loadConfig(ctx context.Context, sc *model.Scenario) error {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, start_time, end_time, crew_turnaround_time,
		       aircraft_turnaround_time, max_delay, aircraft_selector,
		       crew_selector, wait_for_deadheaders,
		       aircraft_reassign_tolerance, crew_reassign_tolerance
		FROM scenarios WHERE sid = ?`, sc.ID)

	var startStr, endStr string
	var crewTurn, acTurn, maxDelay, acTol, crewTol int64
	var waitDH int
	var asel, csel sql.NullString
	err := row.Scan(&sc.Name, &startStr, &endStr, &crewTurn, &acTurn, &maxDelay,
		&asel, &csel, &waitDH, &acTol, &crewTol)
	if err == sql.ErrNoRows {
		return fmt.Errorf("scenario %q: %w", sc.ID, ErrScenarioNotFound)
	}
	if err != nil {
		return fmt.Errorf("read scenario %q: %w", sc.ID, err)
	}

	start, err := ParseTime(startStr)
	if err != nil {
		return err
	}
	end, err := ParseTime(endStr)
	if err != nil {
		return err
	}

	sc.Config = model.Config{
		Start:                     start,
		End:                       end,
		CrewTurnaround:            time.Duration(crewTurn) * time.Minute,
		AircraftTurnaround:        time.Duration(acTurn) * time.Minute,
		MaxDelay:                  time.Duration(maxDelay) * time.Minute,
		AircraftSelector:          asel.String,
		CrewSelector:              csel.String,
		WaitForDeadheaders:        waitDH > 0,
		AircraftReassignTolerance: time.Duration(acTol) * time.Minute,
		CrewReassignTolerance:     time.Duration(crewTol) * time.Minute,
	}

	for _, name := range []string{sc.Config.AircraftSelector, sc.Config.CrewSelector} {
		if name == "" {
			continue
		}
		if _, ok := sim.LookupSelector(name); !ok {
			return fmt.Errorf("selector %q: %w", name, ErrUnknownSelector)
		}
	}
	return nil
}

func (s *Store) loadAirports(ctx context.Context, sc *model.Scenario) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, max_dep_per_hour, max_arr_per_hour, latitude, longitude
		FROM airports WHERE sid = ?`, sc.ID)
	if err != nil {
		return fmt.Errorf("read airports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		ap := &model.Airport{}
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&ap.Code, &ap.MaxDepPerHour, &ap.MaxArrPerHour, &lat, &lon); err != nil {
			return fmt.Errorf("scan airport: %w", err)
		}
		ap.Latitude, ap.Longitude = lat.Float64, lon.Float64
		sc.Airports[ap.Code] = ap
	}
	return rows.Err()
}

func (s *Store) loadAircraft(ctx context.Context, sc *model.Scenario) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tail, location, typename, capacity FROM aircraft WHERE sid = ?`, sc.ID)
	if err != nil {
		return fmt.Errorf("read aircraft: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		ac := &model.Aircraft{}
		if err := rows.Scan(&ac.Tail, &ac.Home, &ac.TypeName, &ac.Capacity); err != nil {
			return fmt.Errorf("scan aircraft: %w", err)
		}
		if _, ok := sc.Airports[ac.Home]; !ok {
			return fmt.Errorf("aircraft %s at unknown airport %s: %w", ac.Tail, ac.Home, ErrMissingReference)
		}
		sc.Fleet[ac.Tail] = ac
	}
	return rows.Err()
}

func (s *Store) loadCrew(ctx context.Context, sc *model.Scenario) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, location FROM crew WHERE sid = ?`, sc.ID)
	if err != nil {
		return fmt.Errorf("read crew: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		c := &model.Crew{}
		if err := rows.Scan(&c.ID, &c.Home); err != nil {
			return fmt.Errorf("scan crew: %w", err)
		}
		if _, ok := sc.Airports[c.Home]; !ok {
			return fmt.Errorf("crew %d at unknown airport %s: %w", c.ID, c.Home, ErrMissingReference)
		}
		sc.Crew[c.ID] = c
	}
	return rows.Err()
}

func (s *Store) loadFlights(ctx context.Context, sc *model.Scenario) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flight_number, aircraft, origin, dest, pilot,
		       sched_depart, sched_arrive
		FROM flights WHERE sid = ? ORDER BY id`, sc.ID)
	if err != nil {
		return fmt.Errorf("read flights: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		p := &model.FlightPlan{}
		var number sql.NullString
		var pilot sql.NullInt64
		var depStr, arrStr string
		if err := rows.Scan(&p.ID, &number, &p.Tail, &p.Origin, &p.Dest, &pilot, &depStr, &arrStr); err != nil {
			return fmt.Errorf("scan flight: %w", err)
		}
		p.Number = number.String
		p.Pilot = model.CrewID(pilot.Int64)
		if p.SchedDepart, err = ParseTime(depStr); err != nil {
			return err
		}
		if p.SchedArrive, err = ParseTime(arrStr); err != nil {
			return err
		}
		if err := s.validateFlight(sc, p); err != nil {
			return err
		}
		sc.Flights = append(sc.Flights, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return s.loadDeadheaders(ctx, sc)
}

func (s *Store) validateFlight(sc *model.Scenario, p *model.FlightPlan) error {
	if _, ok := sc.Airports[p.Origin]; !ok {
		return fmt.Errorf("flight %d origin %s: %w", p.ID, p.Origin, ErrMissingReference)
	}
	if _, ok := sc.Airports[p.Dest]; !ok {
		return fmt.Errorf("flight %d dest %s: %w", p.ID, p.Dest, ErrMissingReference)
	}
	if _, ok := sc.Fleet[p.Tail]; !ok {
		return fmt.Errorf("flight %d aircraft %s: %w", p.ID, p.Tail, ErrMissingReference)
	}
	if p.Pilot != 0 {
		if _, ok := sc.Crew[p.Pilot]; !ok {
			return fmt.Errorf("flight %d pilot %d: %w", p.ID, p.Pilot, ErrMissingReference)
		}
	}
	return nil
}

func (s *Store) loadDeadheaders(ctx context.Context, sc *model.Scenario) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fid, id FROM deadheaders WHERE sid = ? ORDER BY fid, id`, sc.ID)
	if err != nil {
		return fmt.Errorf("read deadheaders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byFlight := make(map[model.FlightID][]model.CrewID)
	for rows.Next() {
		var fid model.FlightID
		var cid model.CrewID
		if err := rows.Scan(&fid, &cid); err != nil {
			return fmt.Errorf("scan deadheader: %w", err)
		}
		if _, ok := sc.Crew[cid]; !ok {
			return fmt.Errorf("deadheader crew %d: %w", cid, ErrMissingReference)
		}
		byFlight[fid] = append(byFlight[fid], cid)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range sc.Flights {
		p.Deadheaders = byFlight[p.ID]
		delete(byFlight, p.ID)
	}
	if len(byFlight) > 0 {
		return fmt.Errorf("deadheaders reference %d unknown flights: %w", len(byFlight), ErrMissingReference)
	}
	return nil
}

func (s *Store) loadDemand(ctx context.Context, sc *model.Scenario) error {
	rows, err := s.db.QueryContext(ctx, `SELECT path, amount FROM demand WHERE sid = ?`, sc.ID)
	if err != nil {
		return fmt.Errorf("read demand: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var path string
		var amount int
		if err := rows.Scan(&path, &amount); err != nil {
			return fmt.Errorf("scan demand: %w", err)
		}
		if amount <= 0 {
			continue
		}
		d := model.Demand{Count: amount}
		for _, leg := range strings.Split(path, "-") {
			code := model.AirportCode(leg)
			if _, ok := sc.Airports[code]; !ok {
				return fmt.Errorf("demand path %q airport %s: %w", path, code, ErrMissingReference)
			}
			d.Path = append(d.Path, code)
		}
		sc.Demand = append(sc.Demand, d)
	}
	return rows.Err()
}

func (s *Store) loadDisruptions(ctx context.Context, sc *model.Scenario) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT airport, start, "end", hourly_rate, type, reason
		FROM disruptions WHERE sid = ? ORDER BY airport, type, start`, sc.ID)
	if err != nil {
		return fmt.Errorf("read disruptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d model.Disruption
		var typ string
		var reason sql.NullString
		var startStr, endStr string
		if err := rows.Scan(&d.Airport, &startStr, &endStr, &d.HourlyRate, &typ, &reason); err != nil {
			return fmt.Errorf("scan disruption: %w", err)
		}
		if d.Start, err = ParseTime(startStr); err != nil {
			return err
		}
		if d.End, err = ParseTime(endStr); err != nil {
			return err
		}
		if !d.End.After(d.Start) {
			return fmt.Errorf("disruption at %s has inverted window: %w", d.Airport, ErrBadDisruption)
		}
		if _, ok := sc.Airports[d.Airport]; !ok {
			return fmt.Errorf("disruption airport %s: %w", d.Airport, ErrMissingReference)
		}
		d.Reason = reason.String

		switch typ {
		case "gdp":
			d.Kind = model.DisruptArrivals
		case "dep", "rate_reduction":
			d.Kind = model.DisruptDepartures
		case "ground_stop":
			d.Kind = model.DisruptDepartures
			d.HourlyRate = 0
		default:
			return fmt.Errorf("disruption type %q: %w", typ, ErrBadDisruption)
		}
		sc.Disruptions = append(sc.Disruptions, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Stable order regardless of how ties sort in the store.
	sort.SliceStable(sc.Disruptions, func(i, j int) bool {
		a, b := sc.Disruptions[i], sc.Disruptions[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Airport != b.Airport {
			return a.Airport < b.Airport
		}
		return a.Kind < b.Kind
	})
	return nil
}

// ParseTime parses a store timestamp ("2006-01-02 15:04:05", UTC).
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrBadTimestamp)
	}
	return t, nil
}

// FormatTime renders t in the store timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
