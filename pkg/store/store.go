// Package store persists acceptance-test results to a local SQLite
// database so regressions are visible across runs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// Store wraps the sql.DB connection.
type Store struct {
	*sql.DB
}

// Result is one recorded test run.
type Result struct {
	RunID    string
	Driver   string
	Passed   bool
	Err      string
	Started  time.Time
	Duration time.Duration
}

// Init opens the database and runs migrations.
func Init(path string) (*Store, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{db}
	// Enforce single connection to avoid SQLITE_BUSY errors during concurrent writes
	db.SetMaxOpenConns(1)

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			driver TEXT,
			passed BOOLEAN,
			error TEXT,
			started_at DATETIME,
			duration_ms INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_driver ON results(driver, started_at);`,
	}

	for _, q := range queries {
		if _, err := s.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}
	return nil
}

// SaveResult appends one test result.
func (s *Store) SaveResult(r Result) error {
	_, err := s.Exec(
		`INSERT INTO results (run_id, driver, passed, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Driver, r.Passed, r.Err,
		r.Started.UTC().Format("2006-01-02 15:04:05"),
		r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// ListResults returns the most recent results for a driver, newest
// first. A zero limit means all of them.
func (s *Store) ListResults(driver string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.Query(
		`SELECT run_id, driver, passed, error, started_at, duration_ms
		 FROM results WHERE driver = ?
		 ORDER BY started_at DESC, id DESC LIMIT ?`,
		driver, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var started string
		var durMs int64
		if err := rows.Scan(&r.RunID, &r.Driver, &r.Passed, &r.Err, &started, &durMs); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Started, _ = time.Parse("2006-01-02 15:04:05", started)
		r.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneResults removes results older than the specified duration.
func (s *Store) PruneResults(olderThan time.Duration) error {
	// Format time compatible with SQLite DEFAULT CURRENT_TIMESTAMP (YYYY-MM-DD HH:MM:SS)
	deadline := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	_, err := s.Exec("DELETE FROM results WHERE created_at < ?", deadline)
	return err
}
