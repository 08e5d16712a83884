package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pipfuzz/internal/ir"
)

// Snapshot renders a scenario's trace as canonical JSON, the format of
// golden files.
func Snapshot(scenarioName string, trace []TraceEvent) ([]byte, error) {
	events := make([]any, len(trace))
	for i, ev := range trace {
		m := map[string]any{"type": ev.Type}
		putString(m, "node", ev.Node)
		putString(m, "token", ev.Token)
		putString(m, "sink", ev.Sink)
		putString(m, "state", ev.State)
		putString(m, "failed_in", ev.FailedIn)
		putString(m, "image", ev.Image)
		putString(m, "code", ev.Code)
		if ev.Type == EventNode {
			m["builds"] = ev.Builds
		}
		if ev.Type == EventSink {
			m["samples"] = ev.Samples
			m["sources"] = stringList(ev.Sources)
		}
		if len(ev.Pending) > 0 {
			m["pending"] = stringList(ev.Pending)
		}
		events[i] = m
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	})
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file,
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
