package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chaincheck/chaincheck/internal/config"
	"github.com/chaincheck/chaincheck/internal/harness"
	"github.com/chaincheck/chaincheck/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // glob matched against the scenario file name
}

// ScenarioOutcome holds the result of a single scenario execution.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// RunSummary holds the overall run result.
type RunSummary struct {
	RunID     string            `json:"run_id,omitempty"`
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Discover scenario files per the configuration and execute them
against a fresh mock chain each, validating expect clauses and golden
traces.

Exit codes:
  0 - all scenarios passed
  1 - one or more scenarios failed
  2 - command error (invalid paths, bad config, etc.)

Examples:
  chaincheck run ./scenarios
  chaincheck run ./scenarios --filter "transfer*"
  chaincheck run ./scenarios --update
  chaincheck run ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *RunOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	files, err := discoverScenarios(scenariosDir, cfg, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "discovering scenarios", err)
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return outputRunJSON(cmd, RunSummary{Scenarios: []ScenarioOutcome{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	summary := RunSummary{
		Scenarios: make([]ScenarioOutcome, 0, len(files)),
		Total:     len(files),
	}
	startedAt := time.Now()

	for _, rel := range files {
		outcome := runOneScenario(opts, filepath.Join(scenariosDir, filepath.FromSlash(rel)), cmd)
		summary.Scenarios = append(summary.Scenarios, outcome)
		if outcome.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if cfg.Store.Path != "" {
		runID, err := recordRun(cmd.Context(), cfg.Store.Path, startedAt, summary)
		if err != nil {
			return WrapExitError(ExitCommandError, "recording run", err)
		}
		summary.RunID = runID
	}

	if opts.Format == "json" {
		return outputRunJSON(cmd, summary)
	}
	return outputRunText(cmd, summary)
}

// discoverScenarios applies the config's discovery patterns under dir,
// then the --filter glob against the scenario file name.
func discoverScenarios(dir string, cfg *config.Config, filter string) ([]string, error) {
	files, err := config.Discover(dir, cfg.Scenarios)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return files, nil
	}

	var kept []string
	for _, rel := range files {
		base := filepath.Base(rel)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(filter, name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			kept = append(kept, rel)
		}
	}
	return kept, nil
}

// runOneScenario executes a single scenario file and reports its outcome,
// printing progress in text mode as it goes.
func runOneScenario(opts *RunOptions, path string, cmd *cobra.Command) ScenarioOutcome {
	w := cmd.OutOrStdout()
	text := opts.Format != "json"

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		if text {
			fmt.Fprintf(w, "✗ %s\n  Load error: %v\n", filepath.Base(path), err)
		}
		return ScenarioOutcome{
			Name:   filepath.Base(path),
			Pass:   false,
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose && text {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	}

	result, err := harness.RunWithLogger(cmd.Context(), scenario, logger)
	if err != nil {
		if text {
			fmt.Fprintf(w, "✗ %s\n  Execution error: %v\n", scenario.Name, err)
		}
		return ScenarioOutcome{
			Name:   scenario.Name,
			Pass:   false,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	outcome := ScenarioOutcome{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}

	if err := compareOrUpdateGolden(opts, scenario, result, path, &outcome); err != nil {
		outcome.Pass = false
		outcome.Errors = append(outcome.Errors, err.Error())
	}

	if text {
		if outcome.Pass {
			suffix := ""
			if opts.Update {
				suffix = " (golden updated)"
			}
			fmt.Fprintf(w, "✓ %s%s\n", scenario.Name, suffix)
		} else {
			fmt.Fprintf(w, "✗ %s\n", scenario.Name)
			for _, e := range outcome.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
	}
	return outcome
}

// compareOrUpdateGolden handles the golden trace next to the scenario
// file: scenarios/golden/<name>.golden. A missing golden file is not an
// error; the scenario is then judged on expectations alone.
func compareOrUpdateGolden(opts *RunOptions, scenario *harness.Scenario, result *harness.Result, scenarioFile string, outcome *ScenarioOutcome) error {
	goldenPath := goldenFilePath(scenarioFile)

	traceJSON, err := harness.MarshalTrace(scenario.Name, result)
	if err != nil {
		return fmt.Errorf("marshaling trace: %w", err)
	}

	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			return fmt.Errorf("creating golden directory: %w", err)
		}
		if err := os.WriteFile(goldenPath, traceJSON, 0644); err != nil {
			return fmt.Errorf("writing golden file: %w", err)
		}
		return nil
	}

	goldenData, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading golden file: %w", err)
	}

	if string(goldenData) != string(traceJSON) {
		return fmt.Errorf("trace does not match golden file (run with --update to regenerate)")
	}
	return nil
}

// goldenFilePath returns the golden file path for a scenario file.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// recordRun persists the run and its scenario outcomes to the store.
func recordRun(ctx context.Context, storePath string, startedAt time.Time, summary RunSummary) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(storePath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	runID := uuid.NewString()
	run := store.Run{
		ID:         runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Passed:     summary.Passed,
		Failed:     summary.Failed,
		Total:      summary.Total,
	}
	if err := st.WriteRun(ctx, run); err != nil {
		return "", err
	}

	for _, s := range summary.Scenarios {
		result := store.ScenarioResult{
			RunID:  runID,
			Name:   s.Name,
			Pass:   s.Pass,
			Errors: s.Errors,
		}
		if err := st.WriteScenarioResult(ctx, result); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func outputRunJSON(cmd *cobra.Command, summary RunSummary) error {
	status := "ok"
	response := CLIResponse{Status: status, Data: summary}

	if summary.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeScenarioFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", summary.Failed),
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

func outputRunText(cmd *cobra.Command, summary RunSummary) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run Summary: %d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
	if summary.RunID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", summary.RunID)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
