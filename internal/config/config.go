// Package config loads and validates the chaincheck runner configuration.
//
// Configuration declares scenario discovery patterns, coverage collection
// globs, the coverage output directory, and the optional run-store path.
// It is consumed by the CLI; nothing at runtime mutates it.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Config is the full runner configuration.
type Config struct {
	Scenarios Patterns `yaml:"scenarios" json:"scenarios"`
	Coverage  Coverage `yaml:"coverage" json:"coverage"`
	Store     Store    `yaml:"store" json:"store"`
}

// Patterns declares include/exclude glob patterns for file discovery.
// Patterns support doublestar `**` and are matched against
// slash-separated paths relative to the discovery root. Exclude wins
// over include.
type Patterns struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Coverage declares which source files are subject to coverage
// collection and where reports are written.
type Coverage struct {
	Patterns `yaml:",inline" json:",inline"`

	// Output is the directory receiving coverage reports and badges.
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Store declares the optional run-history database.
type Store struct {
	// Path to the SQLite database file. Empty disables run recording.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Default returns the configuration used when no config file is present:
// YAML scenarios anywhere under the root, coverage over all Go files
// except tests, reports under "coverage".
func Default() *Config {
	return &Config{
		Scenarios: Patterns{
			Include: []string{"**/*.yaml", "**/*.yml"},
		},
		Coverage: Coverage{
			Patterns: Patterns{
				Include: []string{"**/*.go"},
				Exclude: []string{"**/*_test.go"},
			},
			Output: "coverage",
		},
	}
}

// Validate checks that every glob pattern compiles and that a coverage
// output directory is set whenever coverage collection is configured.
func (c *Config) Validate() error {
	if err := c.Scenarios.validate("scenarios"); err != nil {
		return err
	}
	if err := c.Coverage.Patterns.validate("coverage"); err != nil {
		return err
	}
	if len(c.Coverage.Include) > 0 && c.Coverage.Output == "" {
		return &ValidationError{
			Field:   "coverage.output",
			Message: "output directory is required when coverage patterns are set",
		}
	}
	return nil
}

func (p Patterns) validate(section string) error {
	for _, pat := range p.Include {
		if !doublestar.ValidatePattern(pat) {
			return &ValidationError{
				Field:   section + ".include",
				Message: fmt.Sprintf("invalid glob pattern %q", pat),
			}
		}
	}
	for _, pat := range p.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return &ValidationError{
				Field:   section + ".exclude",
				Message: fmt.Sprintf("invalid glob pattern %q", pat),
			}
		}
	}
	return nil
}

// Match reports whether the slash-separated relative path is selected:
// it must match an include pattern and no exclude pattern.
func (p Patterns) Match(relPath string) (bool, error) {
	relPath = filepath.ToSlash(relPath)

	included := false
	for _, pat := range p.Include {
		ok, err := doublestar.Match(pat, relPath)
		if err != nil {
			return false, fmt.Errorf("pattern %q: %w", pat, err)
		}
		if ok {
			included = true
			break
		}
	}
	if !included {
		return false, nil
	}

	for _, pat := range p.Exclude {
		ok, err := doublestar.Match(pat, relPath)
		if err != nil {
			return false, fmt.Errorf("pattern %q: %w", pat, err)
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}

// ValidationError reports a config field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}
