package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the archive database at
// path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("archive db path cannot be empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "archive.sqlite"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Debug("archive store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		assignment TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		counted INTEGER NOT NULL,
		score REAL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// Save archives one run.
func (s *SQLiteStore) Save(ctx context.Context, run *Run) error {
	counted := 0
	if run.Counted {
		counted = 1
	}
	var score sql.NullFloat64
	if run.Score != nil {
		score = sql.NullFloat64{Float64: *run.Score, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, assignment, started_at, counted, score, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Assignment, run.StartedAt.Unix(), counted, score, string(run.Payload))
	if err != nil {
		return fmt.Errorf("failed to archive run %q: %w", run.RunID, err)
	}
	return nil
}

// List returns archived runs, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT run_id, assignment, started_at, counted, score, payload
	          FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns the archived run with the given id, or nil when none
// exists.
func (s *SQLiteStore) Get(ctx context.Context, runID string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, assignment, started_at, counted, score, payload
		 FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get archived run %q: %w", runID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRun(rows)
}

// Prune removes runs started before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE started_at < ?`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune archive: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned archived runs", "removed", n, "older_than", olderThan)
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		run       Run
		startedAt int64
		counted   int
		score     sql.NullFloat64
		payload   string
	)
	if err := rows.Scan(&run.RunID, &run.Assignment, &startedAt, &counted, &score, &payload); err != nil {
		return nil, fmt.Errorf("failed to scan archived run: %w", err)
	}
	run.StartedAt = time.Unix(startedAt, 0).UTC()
	run.Counted = counted == 1
	if score.Valid {
		run.Score = &score.Float64
	}
	run.Payload = []byte(payload)
	return &run, nil
}
