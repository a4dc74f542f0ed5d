package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: optional genesis
// balances, a sequence of calls with expected completions, and
// assertions over the final trace and chain state.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Genesis maps addresses to initial balances in ether (decimal
	// strings). Applied before the first step, in sorted address order.
	Genesis map[string]string `yaml:"genesis,omitempty"`

	// Steps is the main flow: calls with optional expect clauses.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and chain state.
	// Supported types: trace_contains, trace_count, balance.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step invokes one call against the registry.
type Step struct {
	// Call is the call URI, e.g. "units.parseEther" or "chain.transfer".
	Call string `yaml:"call"`

	// Args holds the call arguments. Amounts are decimal strings.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Expect specifies the expected completion. If nil, the step must
	// merely complete with outcome "ok".
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies expected completion behavior.
type Expect struct {
	// Outcome is the expected completion outcome ("ok" or "error").
	// Defaults to "ok".
	Outcome string `yaml:"outcome,omitempty"`

	// Result contains expected result field values. Subset match: only
	// the listed fields are compared.
	Result map[string]interface{} `yaml:"result,omitempty"`
}

// Assertion validates the trace or final chain state.
type Assertion struct {
	// Type is "trace_contains", "trace_count", or "balance".
	Type string `yaml:"type"`

	// Call is the call URI (trace_contains, trace_count).
	Call string `yaml:"call,omitempty"`

	// Args are expected invocation arguments, subset match
	// (trace_contains).
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Count is the expected number of invocations (trace_count).
	Count int `yaml:"count,omitempty"`

	// Address is the account to inspect (balance).
	Address string `yaml:"address,omitempty"`

	// Ether is the expected balance as a decimal ether string (balance).
	Ether string `yaml:"ether,omitempty"`

	// Wei is the expected balance in wei (balance). At most one of
	// Ether and Wei may be set.
	Wei string `yaml:"wei,omitempty"`
}

// LoadScenario reads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks structural requirements before execution.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range s.Steps {
		if step.Call == "" {
			return fmt.Errorf("step %d: call is required", i)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case "trace_contains":
			if a.Call == "" {
				return fmt.Errorf("assertion %d: trace_contains requires call", i)
			}
		case "trace_count":
			if a.Call == "" {
				return fmt.Errorf("assertion %d: trace_count requires call", i)
			}
		case "balance":
			if a.Address == "" {
				return fmt.Errorf("assertion %d: balance requires address", i)
			}
			if a.Ether != "" && a.Wei != "" {
				return fmt.Errorf("assertion %d: balance takes ether or wei, not both", i)
			}
			if a.Ether == "" && a.Wei == "" {
				return fmt.Errorf("assertion %d: balance requires ether or wei", i)
			}
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}
