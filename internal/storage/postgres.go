package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"airline_recovery/internal/sim"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// PostgresDB wraps a PostgreSQL connection pool for run-result storage.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL and ensures the
// result tables exist.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := &PostgresDB{pool: pool}
	if err := db.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	return db, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

func (d *PostgresDB) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id          TEXT PRIMARY KEY,
		scenario_id     TEXT NOT NULL,
		scenario_name   TEXT NOT NULL,
		max_delay_min   INTEGER NOT NULL,
		flights_total   INTEGER NOT NULL,
		on_time         INTEGER NOT NULL,
		delayed         INTEGER NOT NULL,
		cancelled       INTEGER NOT NULL,
		total_delay_min INTEGER NOT NULL,
		pax_displaced   INTEGER NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS run_flights (
		run_id        TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		flight_id     BIGINT NOT NULL,
		flight_number TEXT NOT NULL DEFAULT '',
		tail          TEXT NOT NULL,
		pilot         BIGINT,
		origin        TEXT NOT NULL,
		dest          TEXT NOT NULL,
		status        TEXT NOT NULL,
		sched_depart  TIMESTAMPTZ NOT NULL,
		sched_arrive  TIMESTAMPTZ NOT NULL,
		act_depart    TIMESTAMPTZ,
		act_arrive    TIMESTAMPTZ,
		delay_min     INTEGER NOT NULL,
		cancel_reason TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, flight_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario_id);
	CREATE INDEX IF NOT EXISTS idx_run_flights_status ON run_flights(run_id, status);
	`
	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return err
	}
	return nil
}

// SaveRun upserts a completed run and replaces its per-flight outcomes.
func (d *PostgresDB) SaveRun(ctx context.Context, runID string, res *sim.Result) error {
	m := res.Metrics
	_, err := d.pool.Exec(ctx, `
		INSERT INTO runs (run_id, scenario_id, scenario_name, max_delay_min,
			flights_total, on_time, delayed, cancelled, total_delay_min, pax_displaced)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			scenario_id     = EXCLUDED.scenario_id,
			scenario_name   = EXCLUDED.scenario_name,
			max_delay_min   = EXCLUDED.max_delay_min,
			flights_total   = EXCLUDED.flights_total,
			on_time         = EXCLUDED.on_time,
			delayed         = EXCLUDED.delayed,
			cancelled       = EXCLUDED.cancelled,
			total_delay_min = EXCLUDED.total_delay_min,
			pax_displaced   = EXCLUDED.pax_displaced`,
		runID, res.ScenarioID, res.ScenarioName, res.MaxDelayMin,
		m.FlightsTotal, m.OnTime, m.Delayed, m.Cancelled,
		m.TotalDelayMin, m.PassengersDisplaced)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}

	if _, err := d.pool.Exec(ctx, `DELETE FROM run_flights WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("clear run flights: %w", err)
	}

	for _, f := range res.Flights {
		var pilot any
		if f.Pilot != 0 {
			pilot = int64(f.Pilot)
		}
		_, err := d.pool.Exec(ctx, `
			INSERT INTO run_flights (run_id, flight_id, flight_number, tail, pilot,
				origin, dest, status, sched_depart, sched_arrive,
				act_depart, act_arrive, delay_min, cancel_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			runID, int64(f.ID), f.Number, f.Tail, pilot,
			string(f.Origin), string(f.Dest), f.Status,
			f.SchedDepart, f.SchedArrive, f.ActDepart, f.ActArrive,
			f.DelayMin, f.CancelReason)
		if err != nil {
			return fmt.Errorf("insert run flight %d: %w", f.ID, err)
		}
	}
	return nil
}

// LoadRunSummaries returns the stored run headers for a scenario,
// newest first.
func (d *PostgresDB) LoadRunSummaries(ctx context.Context, scenarioID string) ([]RunSummary, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT run_id, scenario_id, scenario_name, max_delay_min,
			flights_total, on_time, delayed, cancelled, total_delay_min, pax_displaced
		FROM runs WHERE scenario_id = $1
		ORDER BY created_at DESC`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.ScenarioID, &s.ScenarioName, &s.MaxDelayMin,
			&s.FlightsTotal, &s.OnTime, &s.Delayed, &s.Cancelled,
			&s.TotalDelayMin, &s.PassengersDisplaced); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RunSummary is the header row stored per run.
type RunSummary struct {
	RunID               string `json:"run_id"`
	ScenarioID          string `json:"scenario_id"`
	ScenarioName        string `json:"scenario_name"`
	MaxDelayMin         int    `json:"max_delay_min"`
	FlightsTotal        int    `json:"flights_total"`
	OnTime              int    `json:"on_time"`
	Delayed             int    `json:"delayed"`
	Cancelled           int    `json:"cancelled"`
	TotalDelayMin       int    `json:"total_delay_min"`
	PassengersDisplaced int    `json:"passengers_displaced"`
}
