// Package runstore persists matrix run history in a local SQLite database so
// past runs can be listed and inspected after their scratch artifacts are
// cleaned up.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/buildcheck/internal/report"
)

// ErrRunNotFound is returned when a run id has no stored record.
var ErrRunNotFound = errors.New("buildcheck: run not found")

// RunRow is one stored run.
type RunRow struct {
	RunID    string
	Package  string
	Version  string
	Commit   string
	Branch   string
	Started  time.Time
	Finished time.Time
	Passed   int
	Total    int
	Outcome  string
}

// CellRow is one stored cell of a run.
type CellRow struct {
	Cell        string
	Passed      bool
	FailedStage string
	Diagnostic  string
	DurationMS  int64
}

// Store records run history in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the history database. Use ":memory:" for an
// in-memory database, or a file path for persistent storage.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single pooled connection also keeps
	// :memory: databases coherent across calls.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		package TEXT NOT NULL,
		version TEXT NOT NULL,
		commit_hash TEXT,
		branch TEXT,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		total INTEGER NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cells (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		cell TEXT NOT NULL,
		passed INTEGER NOT NULL,
		failed_stage TEXT,
		diagnostic TEXT,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	CREATE INDEX IF NOT EXISTS idx_cells_run_id ON cells(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores a finished run with all its cells in one transaction.
func (s *Store) RecordRun(ctx context.Context, r *report.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (run_id, package, version, commit_hash, branch, started, finished, passed, total, outcome) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.RunID, r.Package, r.Version, r.Commit, r.Branch,
		r.Start.Unix(), r.End.Unix(), r.Passed, r.Total, r.Outcome,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, cell := range r.Cells {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO cells (run_id, cell, passed, failed_stage, diagnostic, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
			r.RunID, cell.Name, cell.Passed, cell.FailedStage, cell.Diagnostic, cell.DurationMS,
		)
		if err != nil {
			return fmt.Errorf("insert cell %s: %w", cell.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run record: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, package, version, commit_hash, branch, started, finished, passed, total, outcome FROM runs ORDER BY started DESC, run_id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		row, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run and its cells.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRow, []CellRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, package, version, commit_hash, branch, started, finished, passed, total, outcome FROM runs WHERE run_id = ?",
		runID,
	)
	if err != nil {
		return RunRow{}, nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return RunRow{}, nil, fmt.Errorf("iterate run: %w", err)
		}
		return RunRow{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	run, err := scanRun(rows)
	if err != nil {
		return RunRow{}, nil, err
	}
	rows.Close()

	cellRows, err := s.db.QueryContext(ctx,
		"SELECT cell, passed, failed_stage, diagnostic, duration_ms FROM cells WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return RunRow{}, nil, fmt.Errorf("query cells: %w", err)
	}
	defer cellRows.Close()

	var cells []CellRow
	for cellRows.Next() {
		var c CellRow
		if err := cellRows.Scan(&c.Cell, &c.Passed, &c.FailedStage, &c.Diagnostic, &c.DurationMS); err != nil {
			return RunRow{}, nil, fmt.Errorf("scan cell: %w", err)
		}
		cells = append(cells, c)
	}
	if err := cellRows.Err(); err != nil {
		return RunRow{}, nil, fmt.Errorf("iterate cells: %w", err)
	}
	return run, cells, nil
}

func scanRun(rows *sql.Rows) (RunRow, error) {
	var row RunRow
	var started, finished int64
	err := rows.Scan(&row.RunID, &row.Package, &row.Version, &row.Commit, &row.Branch,
		&started, &finished, &row.Passed, &row.Total, &row.Outcome)
	if err != nil {
		return RunRow{}, fmt.Errorf("scan run: %w", err)
	}
	row.Started = time.Unix(started, 0)
	row.Finished = time.Unix(finished, 0)
	return row, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
