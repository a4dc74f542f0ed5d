// Package coverage collects and reports test coverage per the runner
// configuration: profiles are parsed, filtered through the configured
// include/exclude globs, summarized, and written to the output directory.
package coverage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/cover"

	"github.com/chaincheck/chaincheck/internal/config"
)

// FileSummary holds statement coverage for a single source file.
type FileSummary struct {
	Path         string  `json:"path"` // module-relative, slash-separated
	TotalStmts   int     `json:"total_stmts"`
	CoveredStmts int     `json:"covered_stmts"`
	Percent      float64 `json:"percent"`
}

// Summary holds statement coverage over the selected files.
type Summary struct {
	Files        []FileSummary `json:"files"`
	TotalStmts   int           `json:"total_stmts"`
	CoveredStmts int           `json:"covered_stmts"`
	Percent      float64       `json:"percent"`
}

// Collect parses a coverage profile and filters it through the coverage
// patterns. Profile file names carry the module path prefix; srcRoot's
// go.mod is consulted to strip it so globs match module-relative paths.
func Collect(profilePath, srcRoot string, patterns config.Patterns) (*Summary, error) {
	profiles, err := cover.ParseProfiles(profilePath)
	if err != nil {
		return nil, fmt.Errorf("parsing coverage profile: %w", err)
	}

	modPath, err := detectModulePath(srcRoot)
	if err != nil {
		return nil, fmt.Errorf("detecting module path: %w", err)
	}

	summary := &Summary{}
	for _, p := range profiles {
		relPath := strings.TrimPrefix(p.FileName, modPath+"/")

		ok, err := patterns.Match(relPath)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		fs := FileSummary{Path: relPath}
		for _, b := range p.Blocks {
			fs.TotalStmts += b.NumStmt
			if b.Count > 0 {
				fs.CoveredStmts += b.NumStmt
			}
		}
		fs.Percent = percent(fs.CoveredStmts, fs.TotalStmts)

		summary.Files = append(summary.Files, fs)
		summary.TotalStmts += fs.TotalStmts
		summary.CoveredStmts += fs.CoveredStmts
	}

	summary.Percent = percent(summary.CoveredStmts, summary.TotalStmts)
	return summary, nil
}

// WriteReport writes the text report and SVG badge into the output
// directory, creating it if needed. Returns the report path.
func WriteReport(summary *Summary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	reportPath := filepath.Join(outputDir, "coverage.txt")
	var sb strings.Builder
	for _, f := range summary.Files {
		fmt.Fprintf(&sb, "%-60s %6.1f%% (%d/%d)\n", f.Path, f.Percent, f.CoveredStmts, f.TotalStmts)
	}
	fmt.Fprintf(&sb, "%-60s %6.1f%% (%d/%d)\n", "total:", summary.Percent, summary.CoveredStmts, summary.TotalStmts)

	if err := os.WriteFile(reportPath, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("writing coverage report: %w", err)
	}

	badgePath := filepath.Join(outputDir, "coverage.svg")
	if err := WriteBadge(summary.Percent, badgePath, DefaultThresholds()); err != nil {
		return "", err
	}

	return reportPath, nil
}

// detectModulePath reads the module directive from srcRoot's go.mod.
func detectModulePath(srcRoot string) (string, error) {
	f, err := os.Open(filepath.Join(srcRoot, "go.mod"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if modPath, found := strings.CutPrefix(line, "module "); found {
			return strings.TrimSpace(modPath), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module directive not found in go.mod")
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total) * 100
}
