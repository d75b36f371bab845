// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records batch reports in a local SQLite database so that
// earlier comparison runs can be listed and inspected.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/dithercmp/internal/batch"
	"github.com/pdiddy/dithercmp/pkg/types"
)

const (
	// stateDir is created under the output directory for the default database.
	stateDir = ".dithercmp"
	dbFile   = "history.db"
)

// DefaultPath returns the database path used when none is configured.
func DefaultPath(outputDir string) string {
	return filepath.Join(outputDir, stateDir, dbFile)
}

// Run is a recorded batch.
type Run struct {
	ID        int64     `json:"id" yaml:"id"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	Tool      string    `json:"tool" yaml:"tool"`
	InputPath string    `json:"input" yaml:"input"`
	OutputDir string    `json:"out_dir" yaml:"out_dir"`
	Succeeded int       `json:"succeeded" yaml:"succeeded"`
	Failed    int       `json:"failed" yaml:"failed"`
}

// ResultRow is one method outcome within a recorded run.
type ResultRow struct {
	Method     string        `json:"method" yaml:"method"`
	OutputPath string        `json:"output" yaml:"output"`
	Outcome    types.Outcome `json:"outcome" yaml:"outcome"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			tool TEXT NOT NULL,
			input_path TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			method TEXT NOT NULL,
			output_path TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_method ON results(method)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a report and returns the new run ID.
func (s *Store) Record(ctx context.Context, r batch.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, tool, input_path, output_dir, succeeded, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.Tool, r.InputPath, r.OutputDir, r.Succeeded(), r.Failed(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for i, rr := range r.Results {
		var errText sql.NullString
		if rr.Err != nil {
			errText = sql.NullString{String: rr.Err.Error(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results (run_id, position, method, output_path, outcome, error, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, i, rr.Method, rr.OutputPath, string(rr.Outcome), errText, rr.Duration.Milliseconds(),
		); err != nil {
			return 0, fmt.Errorf("inserting result for %s: %w", rr.Method, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, tool, input_path, output_dir, succeeded, failed
		FROM runs ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			started string
		)
		if err := rows.Scan(&run.ID, &started, &run.Tool, &run.InputPath, &run.OutputDir, &run.Succeeded, &run.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Results returns the per-method outcomes of a run in table order.
func (s *Store) Results(ctx context.Context, runID int64) ([]ResultRow, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("looking up run %d: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run %d not found", runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT method, output_path, outcome, error, duration_ms
		 FROM results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var (
			row     ResultRow
			outcome string
			errText sql.NullString
			ms      int64
		)
		if err := rows.Scan(&row.Method, &row.OutputPath, &outcome, &errText, &ms); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		row.Outcome = types.Outcome(outcome)
		row.Error = errText.String
		row.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, row)
	}
	return out, rows.Err()
}
