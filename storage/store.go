package storage

import (
	"context"
	"time"

	"trafficgen/generator"
)

// OutcomeRecord is a single persisted outcome row.
type OutcomeRecord struct {
	ID         int64     // auto-increment primary key
	RunID      string    // groups the rows of one generator run
	Iteration  int       // 1-based request number within the run
	Timestamp  time.Time // when the outcome was recorded
	Outcome    string    // Success|Failed|Error
	Fault      string    // none|request|transport|decode
	StatusCode int       // 0 when no response arrived
	Message    string    // response text or fault description
	Latency    time.Duration
}

// Store abstracts a persistence back-end for generator outcomes.
type Store interface {
	generator.Recorder

	// Outcomes returns the rows of one run ordered by iteration.
	Outcomes(ctx context.Context, runID string) ([]OutcomeRecord, error)

	// Close releases any resources (e.g. DB connections).
	Close() error
}
