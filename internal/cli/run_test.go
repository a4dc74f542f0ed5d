package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaincheck/chaincheck/internal/store"
)

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const passingScenario = `
name: parse-one-ether
steps:
  - call: units.parseEther
    args: {amount: "1.0"}
    expect:
      outcome: ok
      result: {wei: "1000000000000000000"}
`

const failingScenario = `
name: wrong-expectation
steps:
  - call: units.parseEther
    args: {amount: "1.0"}
    expect:
      outcome: ok
      result: {wei: "1"}
`

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestRunAllPassing(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "parse.yaml", passingScenario)

	out, err := execute(t, "run", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ parse-one-ether")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestRunFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong-expectation")
}

func TestRunMissingDirectory(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunNoScenarios(t *testing.T) {
	out, err := execute(t, "run", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestRunFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "parse.yaml", passingScenario)
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	// Only the passing scenario name matches the filter.
	out, err := execute(t, "run", dir, "--filter", "parse*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestRunJSONOutput(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "parse.yaml", passingScenario)

	out, err := execute(t, "run", dir, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestRunJSONFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, "run", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)
}

func TestRunGoldenUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "parse.yaml", passingScenario)

	out, err := execute(t, "run", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	golden := filepath.Join(dir, "golden", "parse.golden")
	_, err = os.Stat(golden)
	require.NoError(t, err)

	// Second run compares against the golden file and passes.
	_, err = execute(t, "run", dir)
	require.NoError(t, err)

	// A corrupted golden file fails the comparison.
	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0644))
	out, err = execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestRunRecordsToStore(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "parse.yaml", passingScenario)
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	storePath := filepath.Join(t.TempDir(), "runs.db")
	cfgPath := filepath.Join(t.TempDir(), "chaincheck.yaml")
	cfg := "store:\n  path: " + storePath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, err := execute(t, "run", dir, "--config", cfgPath)
	require.Error(t, err) // one scenario fails
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Run ID:")

	st, err := store.Open(storePath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Passed)
	assert.Equal(t, 1, runs[0].Failed)

	results, err := st.ScenarioResults(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRunBadConfigFlag(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "parse.yaml", passingScenario)

	_, err := execute(t, "run", dir, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
