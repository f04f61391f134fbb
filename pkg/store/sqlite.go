package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const findingsSchema = `
CREATE TABLE IF NOT EXISTS findings (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	seed       INTEGER NOT NULL,
	query      TEXT NOT NULL,
	errors     TEXT NOT NULL,
	node_count INTEGER NOT NULL,
	depth      INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_findings_created ON findings(created_at);
CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
`

// SQLiteRecorder stores findings in a findings table, one row per finding.
// Errors are kept as a JSON array.
type SQLiteRecorder struct {
	db *sql.DB
}

// OpenSQLite opens the database file at path. An empty path or ":memory:"
// uses a private in-memory database.
func OpenSQLite(path string) (*SQLiteRecorder, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; an in-memory database exists per connection
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(findingsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create findings table: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

func (s *SQLiteRecorder) Record(ctx context.Context, f *Finding) error {
	prepare(f)
	errs, err := json.Marshal(f.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode errors of finding %s: %w", f.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO findings (id, run_id, seed, query, errors, node_count, depth, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.RunID, f.Seed, f.Query, string(errs), f.NodeCount, f.Depth, f.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert finding %s: %w", f.ID, err)
	}
	return nil
}

func (s *SQLiteRecorder) List(ctx context.Context, limit int) ([]Finding, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seed, query, errors, node_count, depth, created_at
		FROM findings ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var out []Finding
	for rows.Next() {
		var f Finding
		var errs string
		var created int64
		if err := rows.Scan(&f.ID, &f.RunID, &f.Seed, &f.Query, &errs, &f.NodeCount, &f.Depth, &created); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		if err := json.Unmarshal([]byte(errs), &f.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode errors of finding %s: %w", f.ID, err)
		}
		f.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteRecorder) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM findings").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count findings: %w", err)
	}
	return n, nil
}

func (s *SQLiteRecorder) Close() error {
	return s.db.Close()
}
