// Package history keeps past suite runs in a SQL database so flaky tests can
// be spotted across runs.
package history

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS e2e_runs (
		id VARCHAR(36) PRIMARY KEY,
		mode VARCHAR(16) NOT NULL,
		areas VARCHAR(255) NOT NULL,
		started_at BIGINT NOT NULL,
		finished_at BIGINT NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		flaky INTEGER NOT NULL,
		skipped INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS e2e_results (
		run_id VARCHAR(36) NOT NULL,
		package_path VARCHAR(255) NOT NULL,
		test_name VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		attempts INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL,
		PRIMARY KEY (run_id, package_path, test_name)
	)`,
}

// Run is one stored suite run.
type Run struct {
	ID         string `db:"id" json:"id"`
	Mode       string `db:"mode" json:"mode"`
	Areas      string `db:"areas" json:"areas"`
	StartedAt  int64  `db:"started_at" json:"started_at"`
	FinishedAt int64  `db:"finished_at" json:"finished_at"`
	Passed     int    `db:"passed" json:"passed"`
	Failed     int    `db:"failed" json:"failed"`
	Flaky      int    `db:"flaky" json:"flaky"`
	Skipped    int    `db:"skipped" json:"skipped"`
}

// Started returns the start time of the run.
func (r Run) Started() time.Time {
	return time.UnixMilli(r.StartedAt)
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return time.Duration(r.FinishedAt-r.StartedAt) * time.Millisecond
}

// Result is one test of a stored run.
type Result struct {
	RunID      string `db:"run_id" json:"run_id"`
	Package    string `db:"package_path" json:"package"`
	TestName   string `db:"test_name" json:"test_name"`
	Status     string `db:"status" json:"status"`
	Attempts   int    `db:"attempts" json:"attempts"`
	DurationMS int64  `db:"duration_ms" json:"duration_ms"`
}

// FlakyTest counts how often a test needed a retry to pass.
type FlakyTest struct {
	TestName string `db:"test_name" json:"test_name"`
	Count    int    `db:"flaky_count" json:"count"`
}

// Store reads and writes runs.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database, driver being sqlite3, postgres or mysql,
// and creates the tables when missing.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s history database", driver)
	}
	if driver == "sqlite3" {
		// sqlite3 allows a single writer.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	klog.V(2).Infof("[history] using %s", driver)
	return s, nil
}

// NewStore wraps an open connection. The tables must exist.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to create history tables")
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a run and its results in one transaction.
func (s *Store) Save(ctx context.Context, run Run, results []Result) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO e2e_runs
		(id, mode, areas, started_at, finished_at, passed, failed, flaky, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.Mode, run.Areas, run.StartedAt, run.FinishedAt, run.Passed, run.Failed, run.Flaky, run.Skipped)
	if err != nil {
		return errors.Wrapf(err, "failed to insert run %s", run.ID)
	}

	insert := tx.Rebind(`INSERT INTO e2e_results
		(run_id, package_path, test_name, status, attempts, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for _, r := range results {
		if _, err := tx.ExecContext(ctx, insert, run.ID, r.Package, r.TestName, r.Status, r.Attempts, r.DurationMS); err != nil {
			return errors.Wrapf(err, "failed to insert result %s", r.TestName)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit run")
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := s.db.SelectContext(ctx, &runs, s.db.Rebind(`SELECT id, mode, areas, started_at, finished_at, passed, failed, flaky, skipped
		FROM e2e_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return runs, nil
}

// Get returns a run and its results.
func (s *Store) Get(ctx context.Context, id string) (*Run, []Result, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, s.db.Rebind(`SELECT id, mode, areas, started_at, finished_at, passed, failed, flaky, skipped
		FROM e2e_runs WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, errors.Wrapf(ErrRunNotFound, "%s", id)
		}
		return nil, nil, errors.Wrapf(err, "failed to load run %s", id)
	}

	var results []Result
	err = s.db.SelectContext(ctx, &results, s.db.Rebind(`SELECT run_id, package_path, test_name, status, attempts, duration_ms
		FROM e2e_results WHERE run_id = ? ORDER BY package_path, test_name`), id)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to load results of %s", id)
	}
	return &run, results, nil
}

// Flaky ranks tests by how many runs they were flaky in.
func (s *Store) Flaky(ctx context.Context, limit int) ([]FlakyTest, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []FlakyTest
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`SELECT test_name, COUNT(*) AS flaky_count
		FROM e2e_results WHERE status = ?
		GROUP BY test_name ORDER BY flaky_count DESC, test_name LIMIT ?`), "flaky", limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rank flaky tests")
	}
	return out, nil
}
