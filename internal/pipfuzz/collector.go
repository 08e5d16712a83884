package pipfuzz

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/pipfuzz/internal/oracle"
)

// SinkState is the position of one sink in its fuzz sequence.
type SinkState string

const (
	SinkInit       SinkState = "INIT"
	SinkCollecting SinkState = "COLLECTING"
	SinkSolving    SinkState = "SOLVING"
	SinkSolved     SinkState = "SOLVED"
	SinkFailed     SinkState = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s SinkState) Terminal() bool {
	return s == SinkSolved || s == SinkFailed
}

// Directive returns the substitution forcing the arc source -> sink.
func Directive(sink, source string) string {
	return fmt.Sprintf(`sink="%s", source="%s"`, sink, source)
}

// fuzzSink opens a solver context for one sink, registers one sample per
// candidate source and solves. The returned report is always terminal.
func (f *Fuzzer) fuzzSink(ctx context.Context, t nodeTask, g SinkGroup, logger *slog.Logger) SinkReport {
	rep := SinkReport{Sink: g.Sink, Sources: g.Sources, State: SinkInit}

	fail := func(code ErrorCode, msg, source string, err error) SinkReport {
		rep.FailedIn = rep.State
		rep.State = SinkFailed
		rep.Err = &FuzzError{
			Code:    code,
			Message: msg,
			Node:    t.node.Name,
			Sink:    g.Sink,
			Source:  source,
			Err:     err,
		}
		f.metrics.SinksTotal.WithLabelValues("failed").Inc()
		logger.Warn("sink failed", "sink", g.Sink, "state", rep.FailedIn, "error", err)
		return rep
	}

	fctx, err := f.solver.OpenContext(ctx, f.db, oracle.ContextRequest{
		Baseline:     t.baseline,
		Tiles:        slices.Clone(t.opts.Tiles),
		Sink:         g.Sink,
		PrimaryTile:  t.opts.Tiles[0],
		IgnoredTiles: slices.Clone(t.opts.IgnoredTiles),
		FullMuxStyle: t.opts.FullMuxStyle,
	})
	if err != nil {
		return fail(ErrCodeSolverFailed, "open solver context", "", err)
	}

	rep.State = SinkCollecting
	prefix := t.token + "_"
	for _, src := range g.Sources {
		subst := map[string]string{oracle.DirectiveKey: Directive(g.Sink, src)}
		img, err := f.build(ctx, t.opts.Template, subst, prefix)
		if err != nil {
			return fail(ErrCodeBuildFailed, "build variant", src, err)
		}
		if err := fctx.AddSample(ctx, f.db, src, img); err != nil {
			return fail(ErrCodeSolverFailed, "add sample", src, err)
		}
		rep.Samples++
		f.metrics.SamplesTotal.Inc()
	}

	rep.State = SinkSolving
	if err := fctx.Solve(ctx, f.db); err != nil {
		return fail(ErrCodeSolverFailed, "solve", "", err)
	}

	rep.State = SinkSolved
	f.metrics.SinksTotal.WithLabelValues("solved").Inc()
	logger.Info("sink solved", "sink", g.Sink, "samples", rep.Samples)
	return rep
}
