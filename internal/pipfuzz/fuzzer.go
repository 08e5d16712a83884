package pipfuzz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/oracle"
	"github.com/roach88/pipfuzz/internal/store"
)

// BaselinePrefix names the artifacts of the unconstrained baseline build.
const BaselinePrefix = "base_"

// Options configures one fuzz run.
type Options struct {
	// Patterns are node names, or regexes when Regex is set. Must be non-empty.
	Patterns []string
	Regex    bool

	// IncludeDownhill adds the arcs each node drives to its candidates.
	IncludeDownhill bool

	// CombineWithAnd requires NameFilter to accept both endpoints of an arc
	// rather than either one.
	CombineWithAnd bool
	NameFilter     NamePredicate // nil accepts everything
	ArcFilter      ArcPredicate  // nil accepts everything

	// Tiles is the candidate tile set; the first entry is the primary tile.
	Tiles        []string
	IgnoredTiles []string
	FullMuxStyle bool

	// Template is the design passed to the builder for every variant.
	Template string

	// Baseline is built from Template when zero.
	Baseline ir.Image

	// Parallelism bounds concurrent node tasks. 0 runs every node at once.
	Parallelism int
}

func (o Options) validate() error {
	if len(o.Patterns) == 0 {
		return configError("no node name patterns given")
	}
	for _, p := range o.Patterns {
		if p == "" {
			return configError("empty node name pattern")
		}
		if o.Regex {
			if _, err := regexp.Compile(p); err != nil {
				return &FuzzError{Code: ErrCodeConfiguration, Message: fmt.Sprintf("malformed node pattern %q", p), Err: err}
			}
		}
	}
	if len(o.Tiles) == 0 {
		return configError("no tiles given")
	}
	if o.Template == "" {
		return configError("no design template given")
	}
	if o.Parallelism < 0 {
		return configError("parallelism must be >= 0, got %d", o.Parallelism)
	}
	return nil
}

// Fuzzer drives the catalog, builder and solver over a set of nodes.
//
// The device database and baseline are shared by every node task of a run.
// The database is append-only; the baseline is never rebuilt mid-run.
type Fuzzer struct {
	db      *store.Store
	catalog oracle.Catalog
	builder oracle.Builder
	solver  oracle.Solver
	tokens  TokenGenerator
	logger  *slog.Logger
	metrics *Metrics
}

// FuzzerOption allows configuration of fuzzer parameters.
type FuzzerOption func(*Fuzzer)

// WithLogger sets the logger. Default: slog.Default() tagged component=pipfuzz.
func WithLogger(l *slog.Logger) FuzzerOption {
	return func(f *Fuzzer) {
		f.logger = l
	}
}

// WithMetrics sets the metric collectors. Default: DefaultMetrics().
func WithMetrics(m *Metrics) FuzzerOption {
	return func(f *Fuzzer) {
		f.metrics = m
	}
}

// New creates a Fuzzer. tokens issues one namespace token per node task.
func New(
	db *store.Store,
	catalog oracle.Catalog,
	builder oracle.Builder,
	solver oracle.Solver,
	tokens TokenGenerator,
	opts ...FuzzerOption,
) *Fuzzer {
	f := &Fuzzer{
		db:      db,
		catalog: catalog,
		builder: builder,
		solver:  solver,
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default().With("component", "pipfuzz")
	}
	if f.metrics == nil {
		f.metrics = DefaultMetrics()
	}
	return f
}

// nodeTask is everything one node task needs. Nothing in it is shared
// mutably with other tasks.
type nodeTask struct {
	node     ir.Node
	token    string
	universe ir.WireSet
	baseline ir.Image
	opts     Options
}

// Run fuzzes every node matched by opts.Patterns and blocks until all node
// tasks have finished.
//
// Configuration errors and a failed baseline build are returned before any
// node task starts, with a nil Report. Otherwise the Report covers every
// node and the error joins each failed node's error in resolved-node order.
func (f *Fuzzer) Run(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	nodes, err := f.catalog.Resolve(ctx, opts.Patterns, opts.Regex)
	if err != nil {
		return nil, &FuzzError{Code: ErrCodeConfiguration, Message: "resolve node patterns", Err: err}
	}

	universe := make(ir.WireSet, len(nodes))
	for _, n := range nodes {
		universe[n.Name] = struct{}{}
	}

	tokens, err := f.issueTokens(len(nodes))
	if err != nil {
		return nil, err
	}

	baseline := opts.Baseline
	if baseline.IsZero() {
		baseline, err = f.build(ctx, opts.Template, map[string]string{oracle.DirectiveKey: ""}, BaselinePrefix)
		if err != nil {
			return nil, &FuzzError{Code: ErrCodeBuildFailed, Message: "build baseline", Err: err}
		}
	}

	f.logger.Info("fuzz run starting",
		"nodes", len(nodes),
		"universe", len(universe),
		"parallelism", opts.Parallelism,
		"baseline", baseline.Name)

	report := &Report{Baseline: baseline, Nodes: make([]NodeReport, len(nodes))}

	// Tasks never return errors to the group: every node runs to completion
	// and failures are collected from the reports below.
	var g errgroup.Group
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, node := range nodes {
		task := nodeTask{
			node:     node,
			token:    tokens[i],
			universe: universe,
			baseline: baseline,
			opts:     opts,
		}
		g.Go(func() error {
			report.Nodes[i] = f.runNode(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, n := range report.Nodes {
		if n.Err != nil {
			errs = append(errs, n.Err)
		}
	}

	f.logger.Info("fuzz run finished",
		"nodes", len(nodes),
		"solved", report.CountSinks(SinkSolved),
		"failed", report.CountSinks(SinkFailed),
		"failed_nodes", len(errs))

	return report, errors.Join(errs...)
}

// issueTokens draws one token per node before any task launches and checks
// they are pairwise distinct and cannot collide with the baseline prefix.
func (f *Fuzzer) issueTokens(n int) ([]string, error) {
	tokens := make([]string, n)
	seen := make(map[string]struct{}, n)
	for i := range tokens {
		t := f.tokens.Generate()
		if t == "" {
			return nil, configError("token generator returned an empty token")
		}
		if t+"_" == BaselinePrefix {
			return nil, configError("task token %q collides with the baseline prefix", t)
		}
		if _, dup := seen[t]; dup {
			return nil, configError("token generator returned duplicate token %q", t)
		}
		seen[t] = struct{}{}
		tokens[i] = t
	}
	return tokens, nil
}

func (f *Fuzzer) runNode(ctx context.Context, t nodeTask) NodeReport {
	rep := NodeReport{Node: t.node.Name, Token: t.token}
	logger := f.logger.With("node", t.node.Name, "token", t.token)

	groups := Plan(t.node, t.universe, t.opts)
	if len(groups) == 0 {
		logger.Debug("no qualifying arcs")
		f.metrics.NodesTotal.WithLabelValues("empty").Inc()
		return rep
	}
	logger.Debug("node task starting", "sinks", len(groups))

	for i, g := range groups {
		sr := f.fuzzSink(ctx, t, g, logger)
		rep.Sinks = append(rep.Sinks, sr)
		if sr.Err == nil {
			continue
		}
		for _, rest := range groups[i+1:] {
			rep.Pending = append(rep.Pending, rest.Sink)
		}
		rep.Err = sr.Err
		logger.Error("node task aborted",
			"sink", g.Sink,
			"pending", len(rep.Pending),
			"error", sr.Err)
		f.metrics.NodesTotal.WithLabelValues("failed").Inc()
		return rep
	}

	f.metrics.NodesTotal.WithLabelValues("ok").Inc()
	return rep
}

func (f *Fuzzer) build(ctx context.Context, template string, subst map[string]string, prefix string) (ir.Image, error) {
	start := time.Now()
	img, err := f.builder.Build(ctx, template, subst, prefix)
	f.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	return img, err
}
