package harness

import (
	"github.com/roach88/pipfuzz/internal/pipfuzz"
	"github.com/roach88/pipfuzz/internal/testutil"
)

// Trace event types.
const (
	EventError    = "error"
	EventBaseline = "baseline"
	EventNode     = "node"
	EventSink     = "sink"
)

// TraceEvent is one line of a run trace. Which fields are set depends on
// Type.
type TraceEvent struct {
	Type string `json:"type"`

	Node    string   `json:"node,omitempty"`
	Token   string   `json:"token,omitempty"`
	Builds  int      `json:"builds,omitempty"`  // node: variant builds under the token prefix
	Pending []string `json:"pending,omitempty"` // node

	Sink     string   `json:"sink,omitempty"`
	Sources  []string `json:"sources,omitempty"`
	Samples  int      `json:"samples,omitempty"`
	State    string   `json:"state,omitempty"`
	FailedIn string   `json:"failed_in,omitempty"`

	Image string `json:"image,omitempty"` // baseline
	Code  string `json:"code,omitempty"`  // error, failed sink
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace is derived from the run report in resolved-node order.
	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	// Report and RunErr are what pipfuzz.Fuzzer.Run returned.
	Report *pipfuzz.Report `json:"-"`
	RunErr error           `json:"-"`

	// Builder and Solver are the fakes the run used.
	Builder *testutil.FakeBuilder `json:"-"`
	Solver  *testutil.FakeSolver  `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
