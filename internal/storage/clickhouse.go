// Package storage persists completed simulation results. PostgreSQL
// keeps the latest per-run state while ClickHouse accumulates
// append-only rows for sweep analytics.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"airline_recovery/internal/sim"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ClickHouseDB wraps a ClickHouse connection for sweep-result storage.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse and ensures the
// analytics tables exist.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	db := &ClickHouseDB{conn: conn}
	if err := db.createSchema(ctx); err != nil {
		return nil, fmt.Errorf("create clickhouse schema: %w", err)
	}
	return db, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

func (d *ClickHouseDB) createSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sweep_runs (
			sweep_id          String,
			run_id            String,
			scenario_id       LowCardinality(String),
			scenario_name     LowCardinality(String),
			max_delay_min     Int32,
			flights_total     UInt32,
			on_time           UInt32,
			delayed           UInt32,
			cancelled         UInt32,
			aircraft_subs     UInt32,
			crew_subs         UInt32,
			total_delay_min   Int64,
			avg_delay_min     Float64,
			aircraft_util     Float64,
			crew_util         Float64,
			pax_total         UInt64,
			pax_displaced     UInt64,
			recorded_at       DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(recorded_at)
		ORDER BY (scenario_id, sweep_id, max_delay_min)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS sweep_flights (
			sweep_id      String,
			run_id        String,
			scenario_id   LowCardinality(String),
			max_delay_min Int32,
			flight_id     UInt64,
			flight_number LowCardinality(String),
			tail          LowCardinality(String),
			origin        LowCardinality(String),
			dest          LowCardinality(String),
			status        LowCardinality(String),
			delay_min     Int32,
			cancel_reason LowCardinality(String),
			recorded_at   DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(recorded_at)
		ORDER BY (scenario_id, sweep_id, max_delay_min, flight_id)`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// SaveSweep stores a batch of sweep results. Each result carries the
// max-delay setting it was produced with, so the batch covers one
// sweep across tolerance values.
func (d *ClickHouseDB) SaveSweep(ctx context.Context, sweepID string, results []*sim.Result) error {
	if len(results) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO sweep_runs (sweep_id, run_id, scenario_id, scenario_name,
			max_delay_min, flights_total, on_time, delayed, cancelled,
			aircraft_subs, crew_subs, total_delay_min, avg_delay_min,
			aircraft_util, crew_util, pax_total, pax_displaced)
	`)
	if err != nil {
		return fmt.Errorf("prepare sweep batch: %w", err)
	}

	for i, res := range results {
		m := res.Metrics
		runID := fmt.Sprintf("%s-%d", sweepID, res.MaxDelayMin)
		err := batch.Append(sweepID, runID, res.ScenarioID, res.ScenarioName,
			int32(res.MaxDelayMin), uint32(m.FlightsTotal), uint32(m.OnTime),
			uint32(m.Delayed), uint32(m.Cancelled),
			uint32(m.AircraftSubstitutions), uint32(m.CrewSubstitutions),
			int64(m.TotalDelayMin), m.AvgDelayMin,
			m.AircraftUtilization, m.CrewUtilization,
			uint64(m.PassengersTotal), uint64(m.PassengersDisplaced))
		if err != nil {
			return fmt.Errorf("append sweep run %d: %w", i, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send sweep batch: %w", err)
	}

	fb, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO sweep_flights (sweep_id, run_id, scenario_id, max_delay_min,
			flight_id, flight_number, tail, origin, dest, status, delay_min, cancel_reason)
	`)
	if err != nil {
		return fmt.Errorf("prepare flight batch: %w", err)
	}
	for _, res := range results {
		runID := fmt.Sprintf("%s-%d", sweepID, res.MaxDelayMin)
		for _, f := range res.Flights {
			err := fb.Append(sweepID, runID, res.ScenarioID, int32(res.MaxDelayMin),
				uint64(f.ID), f.Number, f.Tail, string(f.Origin), string(f.Dest),
				f.Status, int32(f.DelayMin), f.CancelReason)
			if err != nil {
				return fmt.Errorf("append sweep flight %d: %w", f.ID, err)
			}
		}
	}
	if err := fb.Send(); err != nil {
		return fmt.Errorf("send flight batch: %w", err)
	}
	return nil
}

// SweepPoint is one row of the cancellation curve for a sweep.
type SweepPoint struct {
	MaxDelayMin   int     `json:"max_delay_min"`
	Cancelled     uint32  `json:"cancelled"`
	Delayed       uint32  `json:"delayed"`
	AvgDelayMin   float64 `json:"avg_delay_min"`
	PaxDisplaced  uint64  `json:"pax_displaced"`
}

// CancellationCurve returns cancellations per max-delay setting for a
// sweep, ordered by tolerance.
func (d *ClickHouseDB) CancellationCurve(ctx context.Context, sweepID string) ([]SweepPoint, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT max_delay_min, cancelled, delayed, avg_delay_min, pax_displaced
		FROM sweep_runs WHERE sweep_id = ?
		ORDER BY max_delay_min`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("query sweep: %w", err)
	}
	defer rows.Close()

	var points []SweepPoint
	for rows.Next() {
		var p SweepPoint
		var maxDelay int32
		if err := rows.Scan(&maxDelay, &p.Cancelled, &p.Delayed, &p.AvgDelayMin, &p.PaxDisplaced); err != nil {
			return nil, fmt.Errorf("scan sweep point: %w", err)
		}
		p.MaxDelayMin = int(maxDelay)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep points: %w", err)
	}
	return points, nil
}
