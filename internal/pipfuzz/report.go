package pipfuzz

import (
	"github.com/roach88/pipfuzz/internal/ir"
)

// Report summarises a fuzz run.
type Report struct {
	Baseline ir.Image     `json:"baseline"`
	Nodes    []NodeReport `json:"nodes"` // Resolved-node order
}

// NodeReport is the outcome of one node task.
type NodeReport struct {
	Node  string       `json:"node"`
	Token string       `json:"token"`
	Sinks []SinkReport `json:"sinks"` // Attempted sinks, sorted

	// Pending lists sinks never attempted because an earlier sink failed.
	Pending []string `json:"pending,omitempty"`

	Err error `json:"-"`
}

// SinkReport is the outcome of one sink.
type SinkReport struct {
	Sink    string    `json:"sink"`
	Sources []string  `json:"sources"`
	Samples int       `json:"samples"`
	State   SinkState `json:"state"`

	// FailedIn is the state the sink was in when it failed.
	FailedIn SinkState `json:"failed_in,omitempty"`

	Err error `json:"-"`
}

// CountSinks returns how many sinks across all nodes ended in state.
func (r *Report) CountSinks(state SinkState) int {
	n := 0
	for _, node := range r.Nodes {
		for _, s := range node.Sinks {
			if s.State == state {
				n++
			}
		}
	}
	return n
}

// FailedNodes returns the names of nodes whose task failed.
func (r *Report) FailedNodes() []string {
	var out []string
	for _, node := range r.Nodes {
		if node.Err != nil {
			out = append(out, node.Node)
		}
	}
	return out
}
