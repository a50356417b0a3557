// Package store persists experiments and replication results in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/workforce-sim/sim/montecarlo"
	"github.com/inference-sim/workforce-sim/sim/scenario"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	seed INTEGER NOT NULL,
	replications INTEGER NOT NULL,
	horizon INTEGER NOT NULL,
	scenario TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS replications (
	experiment_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	seed INTEGER NOT NULL,
	hires INTEGER NOT NULL,
	quits INTEGER NOT NULL,
	builds_completed INTEGER NOT NULL,
	builds_failed INTEGER NOT NULL,
	rebuilds_completed INTEGER NOT NULL,
	rebuilds_failed INTEGER NOT NULL,
	monitors_completed INTEGER NOT NULL,
	monitors_failed INTEGER NOT NULL,
	all_built_at INTEGER NOT NULL,
	failed_deliverables INTEGER NOT NULL,
	peak_in_use INTEGER NOT NULL,
	PRIMARY KEY(experiment_id, idx),
	FOREIGN KEY(experiment_id) REFERENCES experiments(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tick_samples (
	experiment_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	tick INTEGER NOT NULL,
	available INTEGER NOT NULL,
	headcount INTEGER NOT NULL,
	PRIMARY KEY(experiment_id, idx, tick),
	FOREIGN KEY(experiment_id, idx) REFERENCES replications(experiment_id, idx) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS distributions (
	experiment_id TEXT NOT NULL,
	metric TEXT NOT NULL,
	count INTEGER NOT NULL,
	mean REAL NOT NULL,
	stddev REAL NOT NULL,
	min REAL NOT NULL,
	p5 REAL NOT NULL,
	p50 REAL NOT NULL,
	p95 REAL NOT NULL,
	max REAL NOT NULL,
	PRIMARY KEY(experiment_id, metric),
	FOREIGN KEY(experiment_id) REFERENCES experiments(id) ON DELETE CASCADE
);
`

// Store is a SQLite-backed result store.
type Store struct {
	db *sql.DB
}

// Experiment is a stored experiment header.
type Experiment struct {
	ID           string
	Name         string
	Seed         int64
	Replications int
	Horizon      int64
	Scenario     string // YAML
	CreatedAt    time.Time
}

// Replication is a stored replication row.
type Replication struct {
	Index              int
	Seed               int64
	Hires              int
	Quits              int
	BuildsCompleted    int
	BuildsFailed       int
	RebuildsCompleted  int
	RebuildsFailed     int
	MonitorsCompleted  int
	MonitorsFailed     int
	AllBuiltAt         int64
	FailedDeliverables int
	PeakInUse          int
}

// TickSample is one row of a replication's per-tick series.
type TickSample struct {
	Tick      int64
	Available int
	Headcount int
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// CreateExperiment stores the scenario under a fresh experiment ID.
func (s *Store) CreateExperiment(ctx context.Context, sc scenario.Scenario) (Experiment, error) {
	body, err := yaml.Marshal(sc)
	if err != nil {
		return Experiment{}, fmt.Errorf("encode scenario: %w", err)
	}
	exp := Experiment{
		ID:           uuid.NewString(),
		Name:         sc.Name,
		Seed:         sc.Seed,
		Replications: sc.Replications,
		Horizon:      sc.Horizon,
		Scenario:     string(body),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO experiments(id, name, seed, replications, horizon, scenario, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.Name, exp.Seed, exp.Replications, exp.Horizon, exp.Scenario, exp.CreatedAt.Unix(),
	)
	if err != nil {
		return Experiment{}, fmt.Errorf("create experiment: %w", err)
	}
	return exp, nil
}

func (s *Store) GetExperiment(ctx context.Context, id string) (Experiment, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, seed, replications, horizon, scenario, created_at FROM experiments WHERE id = ?`,
		id,
	)
	var e Experiment
	var created int64
	if err := row.Scan(&e.ID, &e.Name, &e.Seed, &e.Replications, &e.Horizon, &e.Scenario, &created); err != nil {
		return Experiment{}, fmt.Errorf("get experiment: %w", err)
	}
	e.CreatedAt = time.Unix(created, 0).UTC()
	return e, nil
}

// ListExperiments returns every stored experiment, oldest first.
func (s *Store) ListExperiments(ctx context.Context) ([]Experiment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, seed, replications, horizon, scenario, created_at
		FROM experiments ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer rows.Close()

	result := make([]Experiment, 0)
	for rows.Next() {
		var e Experiment
		var created int64
		if err := rows.Scan(&e.ID, &e.Name, &e.Seed, &e.Replications, &e.Horizon, &e.Scenario, &created); err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate experiments: %w", err)
	}
	return result, nil
}

// SaveReplication stores one replication and, when withTicks is set, its
// per-tick series, in a single transaction.
func (s *Store) SaveReplication(ctx context.Context, experimentID string, r *montecarlo.ReplicationResult, withTicks bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO replications(
			experiment_id, idx, seed, hires, quits, builds_completed, builds_failed,
			rebuilds_completed, rebuilds_failed, monitors_completed, monitors_failed,
			all_built_at, failed_deliverables, peak_in_use
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		experimentID, r.Index, r.Seed, r.Hires, r.Quits, r.BuildsCompleted, r.BuildsFailed,
		r.RebuildsCompleted, r.RebuildsFailed, r.MonitorsCompleted, r.MonitorsFailed,
		r.AllBuiltAt, r.FailedDeliverables, r.PeakInUse,
	)
	if err != nil {
		return fmt.Errorf("insert replication %d: %w", r.Index, err)
	}

	if withTicks {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO tick_samples(experiment_id, idx, tick, available, headcount) VALUES(?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare tick insert: %w", err)
		}
		defer stmt.Close()
		for tick, available := range r.Available {
			headcount := 0
			if tick < len(r.Headcount) {
				headcount = r.Headcount[tick]
			}
			if _, err := stmt.ExecContext(ctx, experimentID, r.Index, tick, available, headcount); err != nil {
				return fmt.Errorf("insert tick %d of replication %d: %w", tick, r.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replication %d: %w", r.Index, err)
	}
	return nil
}

// ListReplications returns the experiment's replications in index order.
func (s *Store) ListReplications(ctx context.Context, experimentID string) ([]Replication, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT idx, seed, hires, quits, builds_completed, builds_failed, rebuilds_completed,
			rebuilds_failed, monitors_completed, monitors_failed, all_built_at,
			failed_deliverables, peak_in_use
		FROM replications WHERE experiment_id = ? ORDER BY idx`,
		experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list replications: %w", err)
	}
	defer rows.Close()

	result := make([]Replication, 0)
	for rows.Next() {
		var r Replication
		if err := rows.Scan(
			&r.Index, &r.Seed, &r.Hires, &r.Quits, &r.BuildsCompleted, &r.BuildsFailed,
			&r.RebuildsCompleted, &r.RebuildsFailed, &r.MonitorsCompleted, &r.MonitorsFailed,
			&r.AllBuiltAt, &r.FailedDeliverables, &r.PeakInUse,
		); err != nil {
			return nil, fmt.Errorf("scan replication: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replications: %w", err)
	}
	return result, nil
}

// TickSamples returns one replication's stored series in tick order.
func (s *Store) TickSamples(ctx context.Context, experimentID string, idx int) ([]TickSample, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT tick, available, headcount FROM tick_samples
		WHERE experiment_id = ? AND idx = ? ORDER BY tick`,
		experimentID, idx,
	)
	if err != nil {
		return nil, fmt.Errorf("list tick samples: %w", err)
	}
	defer rows.Close()

	result := make([]TickSample, 0)
	for rows.Next() {
		var ts TickSample
		if err := rows.Scan(&ts.Tick, &ts.Available, &ts.Headcount); err != nil {
			return nil, fmt.Errorf("scan tick sample: %w", err)
		}
		result = append(result, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick samples: %w", err)
	}
	return result, nil
}

// SaveDistributions stores the experiment's aggregate statistics.
func (s *Store) SaveDistributions(ctx context.Context, experimentID string, dists map[string]montecarlo.Distribution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, metric := range montecarlo.MetricNames() {
		d, ok := dists[metric]
		if !ok {
			continue
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT OR REPLACE INTO distributions(experiment_id, metric, count, mean, stddev, min, p5, p50, p95, max)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			experimentID, metric, d.Count, d.Mean, d.StdDev, d.Min, d.P5, d.P50, d.P95, d.Max,
		)
		if err != nil {
			return fmt.Errorf("insert distribution %s: %w", metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit distributions: %w", err)
	}
	return nil
}

// Distributions returns the stored aggregate statistics keyed by metric.
func (s *Store) Distributions(ctx context.Context, experimentID string) (map[string]montecarlo.Distribution, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT metric, count, mean, stddev, min, p5, p50, p95, max FROM distributions WHERE experiment_id = ?`,
		experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list distributions: %w", err)
	}
	defer rows.Close()

	result := make(map[string]montecarlo.Distribution)
	for rows.Next() {
		var metric string
		var d montecarlo.Distribution
		if err := rows.Scan(&metric, &d.Count, &d.Mean, &d.StdDev, &d.Min, &d.P5, &d.P50, &d.P95, &d.Max); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		result[metric] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distributions: %w", err)
	}
	return result, nil
}
