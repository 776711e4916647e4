// Package history records recovery batches and their per-file outcomes in a
// local SQLite database.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("history: not found")

// Run statuses.
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

type DB struct {
	db   *sql.DB
	path string
}

type RunRecord struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Directory string `json:"directory"`
	Pattern   string `json:"pattern"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	StartedAt string `json:"started_at"` // RFC3339
	EndedAt   string `json:"ended_at"`   // RFC3339 or empty
}

type FileRecord struct {
	RunID      string `json:"run_id"`
	Seq        int    `json:"seq"`
	Path       string `json:"path"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	Problems   int    `json:"problems"`
	Message    string `json:"message,omitempty"`
}

// Open creates or opens a SQLite database at path with WAL mode,
// busy timeout of 5 seconds, and foreign keys enabled. The connection
// options go in the DSN so every pooled connection gets them.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: journal mode: %w", err)
	}

	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			status     TEXT NOT NULL DEFAULT 'RUNNING',
			directory  TEXT NOT NULL,
			pattern    TEXT NOT NULL,
			total      INTEGER NOT NULL DEFAULT 0,
			succeeded  INTEGER NOT NULL DEFAULT 0,
			failed     INTEGER NOT NULL DEFAULT 0,
			skipped    INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			ended_at   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS file_results (
			run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq         INTEGER NOT NULL,
			path        TEXT NOT NULL,
			outcome     TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			exit_code   INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			problems    INTEGER NOT NULL DEFAULT 0,
			message     TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, seq)
		)`,
	}
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: create table: %w", err)
		}
	}

	return &DB{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// StartRun inserts a RUNNING record. StartedAt defaults to now.
func (d *DB) StartRun(r RunRecord) error {
	if r.StartedAt == "" {
		r.StartedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if r.Status == "" {
		r.Status = StatusRunning
	}
	_, err := d.db.Exec(
		`INSERT INTO runs (id, status, directory, pattern, total, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Status, r.Directory, r.Pattern, r.Total, r.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}
	return nil
}

// AddFile records one file result of a run.
func (d *DB) AddFile(f FileRecord) error {
	_, err := d.db.Exec(
		`INSERT INTO file_results (run_id, seq, path, outcome, reason, exit_code, duration_ms, problems, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.Seq, f.Path, f.Outcome, f.Reason, f.ExitCode, f.DurationMs, f.Problems, f.Message,
	)
	if err != nil {
		return fmt.Errorf("history: insert file result: %w", err)
	}
	return nil
}

// FinishRun stores the final counts and status and stamps ended_at.
func (d *DB) FinishRun(id, status string, total, succeeded, failed, skipped int) error {
	result, err := d.db.Exec(
		`UPDATE runs SET status = ?, total = ?, succeeded = ?, failed = ?, skipped = ?, ended_at = ? WHERE id = ?`,
		status, total, succeeded, failed, skipped, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("history: finish run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id, status, directory, pattern, total, succeeded, failed, skipped, started_at, ended_at`

func scanRun(s interface{ Scan(...any) error }) (RunRecord, error) {
	var r RunRecord
	err := s.Scan(&r.ID, &r.Status, &r.Directory, &r.Pattern, &r.Total,
		&r.Succeeded, &r.Failed, &r.Skipped, &r.StartedAt, &r.EndedAt)
	return r, err
}

// GetRun retrieves a run record by ID. Returns ErrNotFound if the ID
// does not exist.
func (d *DB) GetRun(id string) (RunRecord, error) {
	r, err := scanRun(d.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, ErrNotFound
		}
		return RunRecord{}, fmt.Errorf("history: get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent run records ordered by started_at
// descending. If limit is 0, all records are returned.
func (d *DB) ListRuns(limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = d.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = d.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows runs: %w", err)
	}
	return records, nil
}

// Files returns the file results of a run in processing order.
func (d *DB) Files(runID string) ([]FileRecord, error) {
	rows, err := d.db.Query(
		`SELECT run_id, seq, path, outcome, reason, exit_code, duration_ms, problems, message
		 FROM file_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: list files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.RunID, &f.Seq, &f.Path, &f.Outcome, &f.Reason,
			&f.ExitCode, &f.DurationMs, &f.Problems, &f.Message); err != nil {
			return nil, fmt.Errorf("history: scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows files: %w", err)
	}
	return files, nil
}
