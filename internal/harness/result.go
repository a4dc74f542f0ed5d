package harness

import "github.com/chaincheck/chaincheck/internal/record"

// TraceEvent is one entry in a scenario's execution trace. Invocation
// events carry Call and Args; completion events carry Outcome, Result,
// and the invocation they complete.
type TraceEvent struct {
	Type         string        `json:"type"` // "invocation" or "completion"
	Seq          int64         `json:"seq"`
	ID           string        `json:"id"`
	Call         string        `json:"call,omitempty"`
	Args         record.Object `json:"args,omitempty"`
	InvocationID string        `json:"invocation_id,omitempty"`
	Outcome      string        `json:"outcome,omitempty"`
	Result       record.Object `json:"result,omitempty"`
}

// Result holds the outcome of executing a scenario.
type Result struct {
	Pass   bool
	Errors []string
	Trace  []TraceEvent
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records a failure message and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// addInvocation appends an invocation trace event.
func (r *Result) addInvocation(id, call string, args record.Object, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: "invocation",
		Seq:  seq,
		ID:   id,
		Call: call,
		Args: args,
	})
}

// addCompletion appends a completion trace event.
func (r *Result) addCompletion(id, invocationID, outcome string, result record.Object, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:         "completion",
		Seq:          seq,
		ID:           id,
		InvocationID: invocationID,
		Outcome:      outcome,
		Result:       result,
	})
}

// invocationCount returns how many times a call was invoked.
func (r *Result) invocationCount(call string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == "invocation" && e.Call == call {
			n++
		}
	}
	return n
}
