package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chaincheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateValidConfig(t *testing.T) {
	path := writeConfig(t, `
scenarios:
  include: ["**/*.yaml"]
coverage:
  include: ["**/*.go"]
  exclude: ["**/*_test.go"]
  output: reports
store:
  path: runs.db
`)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Configuration is valid")
	assert.Contains(t, out, "scenario patterns: 1")
	assert.Contains(t, out, "coverage patterns: 2")
	assert.Contains(t, out, "reports")
	assert.Contains(t, out, "runs.db")
}

func TestValidateInvalidGlob(t *testing.T) {
	path := writeConfig(t, `
scenarios:
  include: ["[invalid"]
`)

	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios.include")
}

func TestValidateMissingCoverageOutput(t *testing.T) {
	path := writeConfig(t, `
coverage:
  include: ["**/*.go"]
  output: ""
`)

	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "coverage.output")
}

func TestValidateMissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateJSON(t *testing.T) {
	path := writeConfig(t, `
scenarios:
  include: ["suites/**/*.yaml"]
`)

	out, err := execute(t, "validate", path, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, path, data["path"])
}

func TestValidateJSONError(t *testing.T) {
	path := writeConfig(t, `
scenarios:
  include: ["[invalid"]
`)

	out, err := execute(t, "validate", path, "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
}

func TestValidateCUEConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chaincheck.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
scenarios: include: ["**/*.yaml"]
store: path: "runs.db"
`), 0644))

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Configuration is valid")
	assert.Contains(t, out, "runs.db")
}
