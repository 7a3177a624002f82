package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"trafficgen/generator"
)

type SQLite struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (or creates) the SQLite file at dbPath and runs the
// migration that creates the outcomes table if it does not exist.
// The caller must call Close() when the program shuts down.
func NewSQLite(dbPath string, log *zap.Logger) (*SQLite, error) {
	// modernc.org/sqlite is pure Go and works without CGO.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLite{db: db, log: log, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	const stmt = `
CREATE TABLE IF NOT EXISTS outcomes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    iteration   INTEGER NOT NULL,
    ts          TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    fault       TEXT NOT NULL,
    status_code INTEGER NOT NULL,
    message     TEXT NOT NULL,
    latency_ns  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id, iteration);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create outcomes table: %w", err)
	}
	s.log.Debug("SQLite migration applied")
	return nil
}

// Record implements generator.Recorder.
func (s *SQLite) Record(ctx context.Context, runID string, o generator.Outcome) error {
	msg := o.Message
	if o.Err != nil {
		msg = o.Err.Error()
	}
	ts := s.now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, iteration, ts, outcome, fault, status_code, message, latency_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Iteration, ts, o.Kind.String(), o.Fault.String(), o.StatusCode, msg, int64(o.Latency))
	if err != nil {
		return fmt.Errorf("insert outcome %d: %w", o.Iteration, err)
	}
	s.log.Debug("outcome persisted", zap.String("run_id", runID), zap.Int("request", o.Iteration))
	return nil
}

// Outcomes returns the recorded rows of runID ordered by iteration.
func (s *SQLite) Outcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, iteration, ts, outcome, fault, status_code, message, latency_ns
		 FROM outcomes WHERE run_id = ? ORDER BY iteration, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		var (
			r       OutcomeRecord
			ts      string
			latency int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Iteration, &ts, &r.Outcome, &r.Fault, &r.StatusCode, &r.Message, &latency); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse outcome timestamp %q: %w", ts, err)
		}
		r.Latency = time.Duration(latency)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

// Close shuts down the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
