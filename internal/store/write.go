package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Run is a recorded harness run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Passed     int
	Failed     int
	Total      int
}

// ScenarioResult is one scenario's outcome within a run.
type ScenarioResult struct {
	RunID  string
	Name   string
	Pass   bool
	Errors []string
}

// CoverageSummary is a run's coverage totals.
type CoverageSummary struct {
	RunID        string
	TotalStmts   int
	CoveredStmts int
	Percent      float64
}

// WriteRun inserts a run record. Timestamps are stored as RFC 3339 UTC.
// Duplicate IDs are silently ignored for idempotency.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, passed, failed, total)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Passed,
		run.Failed,
		run.Total,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteScenarioResult inserts one scenario outcome. The run it belongs
// to must exist (foreign key). Errors are stored as a JSON array.
func (s *Store) WriteScenarioResult(ctx context.Context, result ScenarioResult) error {
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("write scenario result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenario_results (run_id, name, pass, errors)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO NOTHING
	`,
		result.RunID,
		result.Name,
		result.Pass,
		string(errsJSON),
	)
	if err != nil {
		return fmt.Errorf("write scenario result: %w", err)
	}
	return nil
}

// WriteCoverageSummary inserts a run's coverage totals. Each run has at
// most one summary (primary key on run_id).
func (s *Store) WriteCoverageSummary(ctx context.Context, summary CoverageSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coverage_summaries (run_id, total_stmts, covered_stmts, percent)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		summary.RunID,
		summary.TotalStmts,
		summary.CoveredStmts,
		summary.Percent,
	)
	if err != nil {
		return fmt.Errorf("write coverage summary: %w", err)
	}
	return nil
}
