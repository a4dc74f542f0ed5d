package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chaincheck/chaincheck/internal/coverage"
	"github.com/chaincheck/chaincheck/internal/store"
)

// CoverageOptions holds flags for the coverage command.
type CoverageOptions struct {
	*RootOptions
	SrcRoot string // module root whose go.mod anchors profile paths
	RunID   string // record the summary against this run
}

// NewCoverageCommand creates the coverage command.
func NewCoverageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CoverageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "coverage <profile>",
		Short: "Collect coverage per the configured globs",
		Long: `Parse a Go coverage profile, keep the files selected by the
configuration's coverage patterns, and write a text report and SVG
badge to the configured output directory.

With --run, the summary is also recorded against that run in the
configured run store, where the history command picks it up.

Examples:
  chaincheck coverage coverage.out
  chaincheck coverage coverage.out --src ./mymodule
  chaincheck coverage coverage.out --run 3f2a...
  chaincheck coverage coverage.out --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoverage(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SrcRoot, "src", ".", "source root directory")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "record the summary against a run id")

	return cmd
}

func runCoverage(opts *CoverageOptions, profilePath string, cmd *cobra.Command) error {
	if _, err := os.Stat(profilePath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("coverage profile not found: %s", profilePath))
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	summary, err := coverage.Collect(profilePath, opts.SrcRoot, cfg.Coverage.Patterns)
	if err != nil {
		return WrapExitError(ExitCommandError, "collecting coverage", err)
	}

	reportPath, err := coverage.WriteReport(summary, cfg.Coverage.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "writing coverage report", err)
	}

	if opts.RunID != "" {
		if cfg.Store.Path == "" {
			return NewExitError(ExitCommandError, "no run store configured (set store.path)")
		}
		if err := recordCoverage(cmd.Context(), cfg.Store.Path, opts.RunID, summary); err != nil {
			return WrapExitError(ExitCommandError, "recording coverage", err)
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: summary})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Coverage report written to %s\n", reportPath)
	fmt.Fprintf(w, "Coverage: %.1f%% (%d/%d statements, %d files)\n",
		summary.Percent, summary.CoveredStmts, summary.TotalStmts, len(summary.Files))
	if opts.RunID != "" {
		fmt.Fprintf(w, "Recorded against run %s\n", opts.RunID)
	}
	return nil
}

// recordCoverage attaches the summary to a recorded run. The store's
// foreign key rejects unknown run ids.
func recordCoverage(ctx context.Context, storePath, runID string, summary *coverage.Summary) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.WriteCoverageSummary(ctx, store.CoverageSummary{
		RunID:        runID,
		TotalStmts:   summary.TotalStmts,
		CoveredStmts: summary.CoveredStmts,
		Percent:      summary.Percent,
	})
}
