package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		s.Close()
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun() Run {
	started := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	return Run{
		ID:         uuid.NewString(),
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Passed:     4,
		Failed:     1,
		Total:      5,
	}
}

func TestWriteAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := testRun()

	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, 4, got.Passed)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 5, got.Total)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteRunIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := testRun()

	require.NoError(t, s.WriteRun(ctx, run))
	require.NoError(t, s.WriteRun(ctx, run))

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecentRunsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		run := Run{
			ID:         uuid.NewString(),
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Total:      1,
			Passed:     1,
		}
		require.NoError(t, s.WriteRun(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := s.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID) // newest first
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestScenarioResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := testRun()
	require.NoError(t, s.WriteRun(ctx, run))

	require.NoError(t, s.WriteScenarioResult(ctx, ScenarioResult{
		RunID: run.ID,
		Name:  "transfer",
		Pass:  true,
	}))
	require.NoError(t, s.WriteScenarioResult(ctx, ScenarioResult{
		RunID:  run.ID,
		Name:   "round-trip",
		Pass:   false,
		Errors: []string{"expect mismatch: ether"},
	}))

	results, err := s.ScenarioResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Ordered by name.
	assert.Equal(t, "round-trip", results[0].Name)
	assert.False(t, results[0].Pass)
	assert.Equal(t, []string{"expect mismatch: ether"}, results[0].Errors)
	assert.Equal(t, "transfer", results[1].Name)
	assert.True(t, results[1].Pass)
	assert.Empty(t, results[1].Errors)
}

func TestScenarioResultRequiresRun(t *testing.T) {
	s := newTestStore(t)
	err := s.WriteScenarioResult(context.Background(), ScenarioResult{
		RunID: "missing",
		Name:  "x",
	})
	assert.Error(t, err) // foreign key violation
}

func TestCoverageSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := testRun()
	require.NoError(t, s.WriteRun(ctx, run))

	require.NoError(t, s.WriteCoverageSummary(ctx, CoverageSummary{
		RunID:        run.ID,
		TotalStmts:   100,
		CoveredStmts: 85,
		Percent:      85.0,
	}))

	got, err := s.GetCoverageSummary(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 85, got.CoveredStmts)
	assert.InDelta(t, 85.0, got.Percent, 0.001)

	_, err = s.GetCoverageSummary(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}
