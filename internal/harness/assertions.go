package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/pipfuzz/internal/pipfuzz"
	"github.com/roach88/pipfuzz/internal/testutil"
)

// AssertionContext is what assertions are evaluated against.
type AssertionContext struct {
	Report  *pipfuzz.Report // nil when the run failed before any node task
	RunErr  error
	Solver  *testutil.FakeSolver
	Builder *testutil.FakeBuilder
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Report   *pipfuzz.Report
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Report != nil {
		fmt.Fprintf(&buf, "\nRun report:\n")
		for _, n := range e.Report.Nodes {
			fmt.Fprintf(&buf, "  %s (%s)\n", n.Node, n.Token)
			for _, s := range n.Sinks {
				fmt.Fprintf(&buf, "    %s %v %s\n", s.Sink, s.Sources, s.State)
			}
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSinkGroup:
			err = assertSinkGroup(actx, a)
		case AssertContextCount:
			err = assertContextCount(actx, a)
		case AssertSampleOrder:
			err = assertSampleOrder(actx, a)
		case AssertNoContext:
			err = assertNoContext(actx, a)
		case AssertIgnoredTiles:
			err = assertIgnoredTiles(actx, a)
		case AssertError:
			err = assertError(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertSinkGroup checks the sink was attempted with exactly the given
// sources in order.
func assertSinkGroup(actx *AssertionContext, a Assertion) error {
	var seen [][]string
	if actx.Report != nil {
		for _, n := range actx.Report.Nodes {
			if a.Node != "" && n.Node != a.Node {
				continue
			}
			for _, s := range n.Sinks {
				if s.Sink != a.Sink {
					continue
				}
				if slices.Equal(s.Sources, a.Sources) {
					return nil
				}
				seen = append(seen, s.Sources)
			}
		}
	}
	actual := "sink not attempted"
	if len(seen) > 0 {
		actual = fmt.Sprintf("sources %v", seen)
	}
	return &AssertionError{
		Type:     AssertSinkGroup,
		Expected: fmt.Sprintf("sink %s with sources %v", a.Sink, a.Sources),
		Actual:   actual,
		Report:   actx.Report,
	}
}

func assertContextCount(actx *AssertionContext, a Assertion) error {
	got := len(actx.Solver.ContextsFor(a.Sink))
	if got != a.Count {
		return &AssertionError{
			Type:     AssertContextCount,
			Expected: fmt.Sprintf("%d contexts for %s", a.Count, a.Sink),
			Actual:   fmt.Sprintf("%d contexts", got),
			Report:   actx.Report,
		}
	}
	return nil
}

// assertSampleOrder checks one context of the sink registered exactly the
// given sources in order, and every sample came before its solve.
func assertSampleOrder(actx *AssertionContext, a Assertion) error {
	contexts := actx.Solver.ContextsFor(a.Sink)
	if len(contexts) == 0 {
		return &AssertionError{
			Type:     AssertSampleOrder,
			Expected: fmt.Sprintf("samples %v for %s", a.Sources, a.Sink),
			Actual:   "no context opened",
			Report:   actx.Report,
		}
	}
	var seen [][]string
	for _, c := range contexts {
		if !slices.Equal(c.Sources(), a.Sources) {
			seen = append(seen, c.Sources())
			continue
		}
		samples := c.Samples()
		for _, solve := range c.Solves() {
			for _, s := range samples {
				if s.Seq > solve {
					return &AssertionError{
						Type:     AssertSampleOrder,
						Expected: fmt.Sprintf("every sample of %s before its solve", a.Sink),
						Actual:   fmt.Sprintf("sample %s at %d after solve at %d", s.Source, s.Seq, solve),
						Report:   actx.Report,
					}
				}
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertSampleOrder,
		Expected: fmt.Sprintf("samples %v for %s", a.Sources, a.Sink),
		Actual:   fmt.Sprintf("samples %v", seen),
		Report:   actx.Report,
	}
}

func assertNoContext(actx *AssertionContext, a Assertion) error {
	if n := len(actx.Solver.ContextsFor(a.Sink)); n > 0 {
		return &AssertionError{
			Type:     AssertNoContext,
			Expected: fmt.Sprintf("no context for %s", a.Sink),
			Actual:   fmt.Sprintf("%d contexts", n),
			Report:   actx.Report,
		}
	}
	return nil
}

// assertIgnoredTiles checks every context carried exactly the given
// ignored tiles. With a sink, only that sink's contexts are checked.
func assertIgnoredTiles(actx *AssertionContext, a Assertion) error {
	contexts := actx.Solver.Contexts()
	if a.Sink != "" {
		contexts = actx.Solver.ContextsFor(a.Sink)
	}
	if len(contexts) == 0 {
		return &AssertionError{
			Type:     AssertIgnoredTiles,
			Expected: fmt.Sprintf("contexts ignoring %v", a.Tiles),
			Actual:   "no context opened",
			Report:   actx.Report,
		}
	}
	for _, c := range contexts {
		if !slices.Equal(c.Request.IgnoredTiles, a.Tiles) {
			return &AssertionError{
				Type:     AssertIgnoredTiles,
				Expected: fmt.Sprintf("contexts ignoring %v", a.Tiles),
				Actual:   fmt.Sprintf("context for %s ignoring %v", c.Request.Sink, c.Request.IgnoredTiles),
				Report:   actx.Report,
			}
		}
	}
	return nil
}

// assertError checks the run error holds a FuzzError with the code, and the
// node and sink when given.
func assertError(actx *AssertionContext, a Assertion) error {
	if a.Code == CodeNone {
		if actx.RunErr != nil {
			return &AssertionError{
				Type:     AssertError,
				Expected: "run without error",
				Actual:   actx.RunErr.Error(),
				Report:   actx.Report,
			}
		}
		return nil
	}
	for _, fe := range fuzzErrors(actx.RunErr) {
		if string(fe.Code) != a.Code {
			continue
		}
		if a.Node != "" && fe.Node != a.Node {
			continue
		}
		if a.Sink != "" && fe.Sink != a.Sink {
			continue
		}
		return nil
	}
	actual := "no error"
	if actx.RunErr != nil {
		actual = actx.RunErr.Error()
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: fmt.Sprintf("%s error (node=%q sink=%q)", a.Code, a.Node, a.Sink),
		Actual:   actual,
		Report:   actx.Report,
	}
}

// fuzzErrors collects the FuzzErrors joined into err.
func fuzzErrors(err error) []*pipfuzz.FuzzError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*pipfuzz.FuzzError
		for _, e := range joined.Unwrap() {
			out = append(out, fuzzErrors(e)...)
		}
		return out
	}
	var fe *pipfuzz.FuzzError
	if errors.As(err, &fe) {
		return []*pipfuzz.FuzzError{fe}
	}
	return nil
}
