package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaincheck/chaincheck/internal/config"
)

// ValidateSummary describes a validated configuration.
type ValidateSummary struct {
	Path             string `json:"path,omitempty"`
	ScenarioPatterns int    `json:"scenario_patterns"`
	CoveragePatterns int    `json:"coverage_patterns"`
	CoverageOutput   string `json:"coverage_output,omitempty"`
	StorePath        string `json:"store_path,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Long: `Load a configuration file and check its glob patterns and output
settings. Without an argument, the --config flag or the well-known
file in the working directory is used.

Examples:
  chaincheck validate chaincheck.yaml
  chaincheck validate chaincheck.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	var cfg *config.Config
	var err error

	switch {
	case path != "":
		cfg, err = config.Load(path)
	default:
		cfg, err = loadConfig(opts)
	}
	if err != nil {
		if opts.Format == "json" {
			_ = writeJSON(cmd.OutOrStdout(), CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: ErrCodeConfig, Message: err.Error()},
			})
		}
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	summary := ValidateSummary{
		Path:             path,
		ScenarioPatterns: len(cfg.Scenarios.Include) + len(cfg.Scenarios.Exclude),
		CoveragePatterns: len(cfg.Coverage.Include) + len(cfg.Coverage.Exclude),
		CoverageOutput:   cfg.Coverage.Output,
		StorePath:        cfg.Store.Path,
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: summary})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "✓ Configuration is valid")
	fmt.Fprintf(w, "  scenario patterns: %d\n", summary.ScenarioPatterns)
	fmt.Fprintf(w, "  coverage patterns: %d\n", summary.CoveragePatterns)
	if summary.CoverageOutput != "" {
		fmt.Fprintf(w, "  coverage output:   %s\n", summary.CoverageOutput)
	}
	if summary.StorePath != "" {
		fmt.Fprintf(w, "  run store:         %s\n", summary.StorePath)
	}
	return nil
}
