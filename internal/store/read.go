package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// RecentRuns returns the most recent runs, newest first, up to limit.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, passed, failed, total
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("recent runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by ID, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, passed, failed, total
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ScenarioResults returns all scenario outcomes for a run, by name.
func (s *Store) ScenarioResults(ctx context.Context, runID string) ([]ScenarioResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, name, pass, errors
		FROM scenario_results
		WHERE run_id = ?
		ORDER BY name
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("scenario results: %w", err)
	}
	defer rows.Close()

	var results []ScenarioResult
	for rows.Next() {
		var r ScenarioResult
		var errsJSON string
		if err := rows.Scan(&r.RunID, &r.Name, &r.Pass, &errsJSON); err != nil {
			return nil, fmt.Errorf("scenario results: %w", err)
		}
		if err := json.Unmarshal([]byte(errsJSON), &r.Errors); err != nil {
			return nil, fmt.Errorf("scenario results: decode errors: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scenario results: %w", err)
	}
	return results, nil
}

// GetCoverageSummary returns a run's coverage totals, or ErrNotFound
// when the run recorded no coverage.
func (s *Store) GetCoverageSummary(ctx context.Context, runID string) (CoverageSummary, error) {
	var c CoverageSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, total_stmts, covered_stmts, percent
		FROM coverage_summaries
		WHERE run_id = ?
	`, runID).Scan(&c.RunID, &c.TotalStmts, &c.CoveredStmts, &c.Percent)
	if errors.Is(err, sql.ErrNoRows) {
		return CoverageSummary{}, fmt.Errorf("coverage for run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return CoverageSummary{}, fmt.Errorf("get coverage summary: %w", err)
	}
	return c, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var started, finished string
	if err := s.Scan(&run.ID, &started, &finished, &run.Passed, &run.Failed, &run.Total); err != nil {
		return Run{}, err
	}

	var err error
	run.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished)
	if err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
