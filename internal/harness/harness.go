package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/pipfuzz/internal/catalog"
	"github.com/roach88/pipfuzz/internal/config"
	"github.com/roach88/pipfuzz/internal/pipfuzz"
	"github.com/roach88/pipfuzz/internal/store"
	"github.com/roach88/pipfuzz/internal/testutil"
)

// scenarioTemplate is the template name handed to the fake builder.
const scenarioTemplate = "scenario.v"

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with fresh fakes and a
// private metrics registry. A failing run is not an execution error: it is
// recorded in the result for the error assertion to check.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	opts, err := scenario.options()
	if err != nil {
		return nil, err
	}

	clock := &testutil.EventClock{}
	builder := testutil.NewFakeBuilder(clock)
	solver := testutil.NewFakeSolver(clock)
	for _, src := range scenario.FailBuilds {
		builder.FailSource(src)
	}
	if scenario.FailBaseline {
		builder.FailAll()
	}
	for _, sink := range scenario.FailSolves {
		solver.FailSolve(sink)
	}
	for _, sink := range scenario.FailOpens {
		solver.FailOpen(sink)
	}

	var tokens pipfuzz.TokenGenerator = pipfuzz.NewSequenceGenerator("task")
	if len(scenario.Run.Tokens) > 0 {
		tokens = &tokenList{tokens: scenario.Run.Tokens}
	}

	f := pipfuzz.New(st, catalog.NewMemory(scenario.catalogNodes()), builder, solver, tokens,
		pipfuzz.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		pipfuzz.WithMetrics(pipfuzz.NewMetrics(prometheus.NewRegistry())),
	)

	result := NewResult()
	result.Builder = builder
	result.Solver = solver
	result.Report, result.RunErr = f.Run(context.Background(), opts)
	result.Trace = buildTrace(result.Report, result.RunErr, builder)

	actx := &AssertionContext{
		Report:  result.Report,
		RunErr:  result.RunErr,
		Solver:  solver,
		Builder: builder,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// options converts the run section through the job configuration, so
// scenarios and job files build filters the same way.
func (s *Scenario) options() (pipfuzz.Options, error) {
	job := &config.Job{
		Template:        scenarioTemplate,
		Tiles:           s.Run.tiles(),
		Nodes:           s.Run.Patterns,
		Regex:           s.Run.Regex,
		IncludeDownhill: s.Run.IncludeDownhill,
		CombineWithAnd:  s.Run.CombineWithAnd,
		FullMuxStyle:    s.Run.FullMuxStyle,
		IgnoreTiles:     s.Run.IgnoredTiles,
		Parallelism:     s.Run.Parallelism,
	}
	if nf := s.Run.NameFilter; nf != nil {
		job.NameFilter = &config.NameFilter{InUniverse: nf.InUniverse, Include: nf.Include, Exclude: nf.Exclude}
	}
	if af := s.Run.ArcFilter; af != nil {
		job.ArcFilter = &config.ArcFilter{
			IncludeSources: af.IncludeSources,
			ExcludeSources: af.ExcludeSources,
			IncludeSinks:   af.IncludeSinks,
			ExcludeSinks:   af.ExcludeSinks,
		}
	}
	opts, err := job.Options()
	if err != nil {
		return pipfuzz.Options{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return opts, nil
}

// buildTrace flattens the report. Call order across node tasks is not
// deterministic, so nothing here depends on it.
func buildTrace(report *pipfuzz.Report, runErr error, builder *testutil.FakeBuilder) []TraceEvent {
	trace := []TraceEvent{}
	if report == nil {
		ev := TraceEvent{Type: EventError}
		var fe *pipfuzz.FuzzError
		if errors.As(runErr, &fe) {
			ev.Code = string(fe.Code)
		}
		return append(trace, ev)
	}

	trace = append(trace, TraceEvent{Type: EventBaseline, Image: report.Baseline.Name})
	builds := builder.Prefixes()
	for _, n := range report.Nodes {
		state := "ok"
		switch {
		case n.Err != nil:
			state = "failed"
		case len(n.Sinks) == 0:
			state = "empty"
		}
		trace = append(trace, TraceEvent{
			Type:    EventNode,
			Node:    n.Node,
			Token:   n.Token,
			Builds:  builds[n.Token+"_"],
			Pending: n.Pending,
			State:   state,
		})
		for _, s := range n.Sinks {
			ev := TraceEvent{
				Type:     EventSink,
				Node:     n.Node,
				Sink:     s.Sink,
				Sources:  s.Sources,
				Samples:  s.Samples,
				State:    string(s.State),
				FailedIn: string(s.FailedIn),
			}
			var fe *pipfuzz.FuzzError
			if errors.As(s.Err, &fe) {
				ev.Code = string(fe.Code)
			}
			trace = append(trace, ev)
		}
	}
	return trace
}

// tokenList issues the scenario's tokens in order, then empty tokens, which
// the fuzzer rejects as a configuration error.
type tokenList struct {
	mu     sync.Mutex
	tokens []string
	next   int
}

func (g *tokenList) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.tokens) {
		return ""
	}
	t := g.tokens[g.next]
	g.next++
	return t
}
