package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaincheck/chaincheck/internal/store"
)

// seedStore creates a store with n recorded runs and returns the config
// file path pointing at it plus the run IDs, oldest first.
func seedStore(t *testing.T, n int) (string, []string) {
	cfgPath, _, ids := seedStoreAt(t, n)
	return cfgPath, ids
}

func seedStoreAt(t *testing.T, n int) (string, string, []string) {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "runs.db")

	st, err := store.Open(storePath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	ids := make([]string, 0, n)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("run-%03d", i)
		run := store.Run{
			ID:         id,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Passed:     2,
			Failed:     0,
			Total:      2,
		}
		require.NoError(t, st.WriteRun(ctx, run))
		require.NoError(t, st.WriteScenarioResult(ctx, store.ScenarioResult{
			RunID: id, Name: "round-trip", Pass: true,
		}))
		require.NoError(t, st.WriteScenarioResult(ctx, store.ScenarioResult{
			RunID: id, Name: "transfer", Pass: true,
		}))
		ids = append(ids, id)
	}

	cfgPath := filepath.Join(t.TempDir(), "chaincheck.yaml")
	cfg := "store:\n  path: " + storePath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return cfgPath, storePath, ids
}

func TestHistoryList(t *testing.T) {
	cfgPath, ids := seedStore(t, 3)

	out, err := execute(t, "history", "--config", cfgPath)
	require.NoError(t, err)
	for _, id := range ids {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "2/2 passed")
}

func TestHistoryLimit(t *testing.T) {
	cfgPath, ids := seedStore(t, 3)

	// Newest first, so the oldest run falls outside the limit.
	out, err := execute(t, "history", "--config", cfgPath, "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, ids[2])
	assert.Contains(t, out, ids[1])
	assert.NotContains(t, out, ids[0])
}

func TestHistoryCoverageColumn(t *testing.T) {
	cfgPath, storePath, ids := seedStoreAt(t, 1)

	st, err := store.Open(storePath)
	require.NoError(t, err)
	require.NoError(t, st.WriteCoverageSummary(context.Background(), store.CoverageSummary{
		RunID:        ids[0],
		TotalStmts:   100,
		CoveredStmts: 85,
		Percent:      85.0,
	}))
	require.NoError(t, st.Close())

	out, err := execute(t, "history", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "85.0% coverage")
}

func TestHistoryShowRun(t *testing.T) {
	cfgPath, ids := seedStore(t, 1)

	out, err := execute(t, "history", "--config", cfgPath, "--run", ids[0])
	require.NoError(t, err)
	assert.Contains(t, out, "Run "+ids[0])
	assert.Contains(t, out, "✓ round-trip")
	assert.Contains(t, out, "✓ transfer")
}

func TestHistoryShowRunNotFound(t *testing.T) {
	cfgPath, _ := seedStore(t, 1)

	_, err := execute(t, "history", "--config", cfgPath, "--run", "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found")
}

func TestHistoryNoStoreConfigured(t *testing.T) {
	cfgPath := writeConfig(t, "scenarios:\n  include: [\"**/*.yaml\"]\n")

	_, err := execute(t, "history", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no run store configured")
}

func TestHistoryStoreMissing(t *testing.T) {
	cfgPath := writeConfig(t, "store:\n  path: "+filepath.Join(t.TempDir(), "absent.db")+"\n")

	_, err := execute(t, "history", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run store not found")
}

func TestHistoryJSON(t *testing.T) {
	cfgPath, ids := seedStore(t, 2)

	out, err := execute(t, "history", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, ids[1], resp.Data[0].RunID)
}
