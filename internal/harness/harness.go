// Package harness executes conformance scenarios against the real unit
// conversion code and a mock chain, producing deterministic traces.
//
// Each scenario runs on a fresh mock chain with a fresh logical clock,
// so a scenario's trace is byte-identical across runs and suitable for
// golden file comparison.
package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/chaincheck/chaincheck/internal/mockchain"
	"github.com/chaincheck/chaincheck/internal/record"
	"github.com/chaincheck/chaincheck/internal/testutil"
	"github.com/chaincheck/chaincheck/internal/units"
)

// harness carries the per-scenario execution state.
type harness struct {
	chain  *mockchain.Client
	clock  *testutil.Clock
	logger *slog.Logger
}

// Run executes a scenario and returns its result.
//
// Execution flow:
//  1. Create a fresh mock chain and logical clock.
//  2. Apply genesis balances in sorted address order.
//  3. Execute steps, tracing invocations and completions and checking
//     expect clauses against the real outcomes.
//  4. Evaluate assertions against the trace and final chain state.
//
// A returned error means the scenario is malformed (bad arguments,
// unknown call); expectation mismatches are reported on the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return RunWithLogger(ctx, scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with a caller-supplied logger for verbose CLI use.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	h := &harness{
		chain:  mockchain.New(),
		clock:  testutil.NewClock(),
		logger: logger,
	}

	if err := h.applyGenesis(scenario); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, scenario.Name, i, step, result); err != nil {
			return nil, err
		}
	}

	h.evaluateAssertions(ctx, scenario, result)
	return result, nil
}

// applyGenesis seeds initial balances. Sorted order keeps execution
// deterministic regardless of map iteration.
func (h *harness) applyGenesis(scenario *Scenario) error {
	addrs := make([]string, 0, len(scenario.Genesis))
	for addr := range scenario.Genesis {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		wei, err := units.ParseEther(scenario.Genesis[addr])
		if err != nil {
			return fmt.Errorf("genesis balance for %s: %w", addr, err)
		}
		if err := h.chain.SetBalance(addr, wei); err != nil {
			return fmt.Errorf("genesis balance for %s: %w", addr, err)
		}
	}
	return nil
}

// executeStep runs one call, traces it, and checks its expect clause.
func (h *harness) executeStep(ctx context.Context, scenarioName string, i int, step Step, result *Result) error {
	fn, ok := registry[step.Call]
	if !ok {
		return fmt.Errorf("step %d: unknown call %q", i, step.Call)
	}

	args, err := record.ToObject(step.Args)
	if err != nil {
		return fmt.Errorf("step %d: invalid args: %w", i, err)
	}

	invSeq := h.clock.Next()
	invID, err := record.InvocationID(scenarioName, step.Call, args, invSeq)
	if err != nil {
		return fmt.Errorf("step %d: invocation id: %w", i, err)
	}
	result.addInvocation(invID, step.Call, args, invSeq)

	outcome, callResult, err := fn(ctx, h.chain, args)
	if err != nil {
		return fmt.Errorf("step %d (%s): %w", i, step.Call, err)
	}

	compSeq := h.clock.Next()
	compID, err := record.CompletionID(invID, outcome, callResult, compSeq)
	if err != nil {
		return fmt.Errorf("step %d: completion id: %w", i, err)
	}
	result.addCompletion(compID, invID, outcome, callResult, compSeq)

	h.logger.Info("step completed",
		"step", i,
		"call", step.Call,
		"outcome", outcome,
	)

	return h.checkExpect(i, step, outcome, callResult, result)
}

// checkExpect compares the actual completion against the step's expect
// clause. Mismatches fail the result but do not abort the run.
func (h *harness) checkExpect(i int, step Step, outcome string, callResult record.Object, result *Result) error {
	expectedOutcome := OutcomeOK
	var expectedResult map[string]interface{}
	if step.Expect != nil {
		if step.Expect.Outcome != "" {
			expectedOutcome = step.Expect.Outcome
		}
		expectedResult = step.Expect.Result
	}

	if outcome != expectedOutcome {
		msg := fmt.Sprintf("step %d (%s): outcome %q, want %q", i, step.Call, outcome, expectedOutcome)
		if m, ok := callResult["message"]; ok {
			msg += fmt.Sprintf(" (%s)", m)
		}
		result.AddError(msg)
		return nil
	}

	if expectedResult == nil {
		return nil
	}

	want, err := record.ToObject(expectedResult)
	if err != nil {
		return fmt.Errorf("step %d: invalid expect.result: %w", i, err)
	}
	for _, key := range want.SortedKeys() {
		got, ok := callResult[key]
		if !ok {
			result.AddError(fmt.Sprintf("step %d (%s): result missing field %q", i, step.Call, key))
			continue
		}
		if !valuesEqual(got, want[key]) {
			result.AddError(fmt.Sprintf("step %d (%s): result field %q = %s, want %s",
				i, step.Call, key, renderValue(got), renderValue(want[key])))
		}
	}
	return nil
}

// evaluateAssertions checks the scenario's assertions against the
// final trace and chain state.
func (h *harness) evaluateAssertions(ctx context.Context, scenario *Scenario, result *Result) {
	for i, a := range scenario.Assertions {
		switch a.Type {
		case "trace_contains":
			h.assertTraceContains(i, a, result)
		case "trace_count":
			if n := result.invocationCount(a.Call); n != a.Count {
				result.AddError(fmt.Sprintf("assertion %d: %s invoked %d times, want %d", i, a.Call, n, a.Count))
			}
		case "balance":
			h.assertBalance(ctx, i, a, result)
		}
	}
}

func (h *harness) assertTraceContains(i int, a Assertion, result *Result) {
	want, err := record.ToObject(a.Args)
	if err != nil {
		result.AddError(fmt.Sprintf("assertion %d: invalid args: %v", i, err))
		return
	}

	for _, e := range result.Trace {
		if e.Type != "invocation" || e.Call != a.Call {
			continue
		}
		if objectContains(e.Args, want) {
			return
		}
	}
	result.AddError(fmt.Sprintf("assertion %d: no invocation of %s matching args", i, a.Call))
}

func (h *harness) assertBalance(ctx context.Context, i int, a Assertion, result *Result) {
	balance, err := h.chain.BalanceAt(ctx, a.Address)
	if err != nil {
		result.AddError(fmt.Sprintf("assertion %d: balance of %s: %v", i, a.Address, err))
		return
	}

	if a.Wei != "" {
		if got := balance.String(); got != a.Wei {
			result.AddError(fmt.Sprintf("assertion %d: balance of %s = %s wei, want %s", i, a.Address, got, a.Wei))
		}
		return
	}
	if got := units.FormatEther(balance); got != a.Ether {
		result.AddError(fmt.Sprintf("assertion %d: balance of %s = %s ether, want %s", i, a.Address, got, a.Ether))
	}
}

// objectContains reports whether every field of want matches in got.
func objectContains(got, want record.Object) bool {
	for k, wv := range want {
		gv, ok := got[k]
		if !ok || !valuesEqual(gv, wv) {
			return false
		}
	}
	return true
}

// valuesEqual compares two record values by canonical bytes.
func valuesEqual(a, b record.Value) bool {
	ab, err := record.MarshalCanonical(a)
	if err != nil {
		return false
	}
	bb, err := record.MarshalCanonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func renderValue(v record.Value) string {
	b, err := record.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
