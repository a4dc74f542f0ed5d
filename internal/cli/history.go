package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaincheck/chaincheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
	RunID string // show one run's scenario results instead of the list
}

// HistoryEntry is one run in the history listing.
type HistoryEntry struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
	Coverage   *float64  `json:"coverage_percent,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `List recent runs from the configured run store, newest first.
With --run, show one run's scenario results instead.

Examples:
  chaincheck history
  chaincheck history --limit 5
  chaincheck history --run 3f2a... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "maximum number of runs to list")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show scenario results for one run")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return NewExitError(ExitCommandError, "no run store configured (set store.path)")
	}
	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run store not found: %s", cfg.Store.Path))
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening run store", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.RunID != "" {
		return showRun(ctx, opts, st, cmd)
	}
	return listRuns(ctx, opts, st, cmd)
}

func listRuns(ctx context.Context, opts *HistoryOptions, st *store.Store, cmd *cobra.Command) error {
	runs, err := st.RecentRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading runs", err)
	}

	entries := make([]HistoryEntry, 0, len(runs))
	for _, run := range runs {
		entry := HistoryEntry{
			RunID:      run.ID,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Passed:     run.Passed,
			Failed:     run.Failed,
			Total:      run.Total,
		}
		cov, err := st.GetCoverageSummary(ctx, run.ID)
		if err == nil {
			entry.Coverage = &cov.Percent
		} else if !errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, "reading coverage", err)
		}
		entries = append(entries, entry)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: entries})
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s  %d/%d passed", e.RunID, e.StartedAt.Format(time.RFC3339), e.Passed, e.Total)
		if e.Coverage != nil {
			line += fmt.Sprintf("  %.1f%% coverage", *e.Coverage)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func showRun(ctx context.Context, opts *HistoryOptions, st *store.Store, cmd *cobra.Command) error {
	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "reading run", err)
	}

	results, err := st.ScenarioResults(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading scenario results", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: map[string]any{
			"run":       run,
			"scenarios": results,
		}})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s: %d passed, %d failed, %d total\n", run.ID, run.Passed, run.Failed, run.Total)
	for _, r := range results {
		mark := "✓"
		if !r.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s\n", mark, r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "      %s\n", e)
		}
	}
	return nil
}
