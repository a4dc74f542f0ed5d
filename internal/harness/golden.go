package harness

import (
	"github.com/chaincheck/chaincheck/internal/record"
)

// TraceSnapshot converts a result's trace into the canonical form used
// for golden comparison. Content-addressed event IDs are omitted: they
// are derived from the listed fields and would only duplicate them.
func TraceSnapshot(scenarioName string, result *Result) map[string]any {
	events := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		m := record.Object{
			"type": record.String(e.Type),
			"seq":  record.Int(e.Seq),
		}
		switch e.Type {
		case "invocation":
			m["call"] = record.String(e.Call)
			m["args"] = e.Args
		case "completion":
			m["outcome"] = record.String(e.Outcome)
			m["result"] = e.Result
		}
		events[i] = m
	}

	return map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	}
}

// MarshalTrace renders the canonical JSON trace for a result.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	return record.MarshalCanonical(TraceSnapshot(scenarioName, result))
}
