package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/pipfuzz/internal/build"
	"github.com/roach88/pipfuzz/internal/catalog"
	"github.com/roach88/pipfuzz/internal/config"
	"github.com/roach88/pipfuzz/internal/pipfuzz"
	"github.com/roach88/pipfuzz/internal/solver"
	"github.com/roach88/pipfuzz/internal/store"
)

// FuzzOptions holds flags for the fuzz command.
type FuzzOptions struct {
	*RootOptions
	Database    string
	MetricsFile string
	Parallelism int // overrides the job when >= 0

	// Tokens allows overriding the task token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens pipfuzz.TokenGenerator
}

// FuzzSummary is the fuzz command's output.
type FuzzSummary struct {
	Device   string        `json:"device"`
	Database string        `json:"database"`
	Baseline string        `json:"baseline"`
	Solved   int           `json:"solved"`
	Failed   int           `json:"failed"`
	Nodes    []NodeSummary `json:"nodes"`
}

// NodeSummary is one node task in a FuzzSummary.
type NodeSummary struct {
	Node    string   `json:"node"`
	Token   string   `json:"token"`
	Solved  []string `json:"solved,omitempty"`
	Failed  []string `json:"failed,omitempty"`
	Pending []string `json:"pending,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// NewFuzzCommand creates the fuzz command.
func NewFuzzCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FuzzOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fuzz <job.cue>",
		Short: "Fuzz the nodes of a job and record their pips",
		Long: `Fuzz every node matched by a job file.

Builds a baseline image, then one variant per candidate arc, and records
the configuration bits of each solved sink in the device database. Node
tasks run in parallel; a failing node does not stop the others.

Exit codes:
  0 - Every node task finished
  1 - One or more node tasks failed
  2 - Command error (bad job file, unreadable catalog, etc.)

Examples:
  pipfuzz fuzz ./jobs/cib.cue
  pipfuzz fuzz ./jobs/cib.cue --db ./LIFCL-40.db --parallelism 4
  pipfuzz fuzz ./jobs/cib.cue --metrics-file ./pipfuzz.prom --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuzz(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the device database (default <job dir>/<device>.db)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write a Prometheus text snapshot of run metrics here")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", -1, "bound concurrent node tasks (0 = unbounded, default from job)")

	return cmd
}

func runFuzz(opts *FuzzOptions, jobPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	job, err := config.Load(jobPath)
	if err != nil {
		return commandError(formatter, "invalid job file", err)
	}
	if opts.Parallelism >= 0 {
		job.Parallelism = opts.Parallelism
	}
	runOpts, err := job.Options()
	if err != nil {
		return commandError(formatter, "invalid job file", err)
	}

	nodes, err := catalog.LoadFile(job.Catalog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to load node dump", err)
	}
	builder, err := build.NewTemplateBuilder(job.Build.WorkDir, job.Build.Command, logger.With("component", "build"))
	if err != nil {
		return commandError(formatter, "invalid build configuration", err)
	}
	diff := solver.New(job.WireChip(), job.Normalize, logger.With("component", "solver"))

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = job.DefaultDatabase()
	}
	logger.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	tokens := opts.Tokens
	if tokens == nil {
		tokens = pipfuzz.UUIDv7Generator{}
	}
	reg := prometheus.NewRegistry()
	f := pipfuzz.New(st, nodes, builder, diff, tokens,
		pipfuzz.WithLogger(logger.With("component", "pipfuzz", "device", job.Device)),
		pipfuzz.WithMetrics(pipfuzz.NewMetrics(reg)),
	)

	ctx, stop := interruptContext(cmd.Context(), logger)
	defer stop()

	report, runErr := f.Run(ctx, runOpts)

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			logger.Error("failed to write metrics", "path", opts.MetricsFile, "error", err)
		}
	}

	if report == nil {
		if pipfuzz.IsBuildError(runErr) {
			return formatter.Fail(ExitFailure, ErrCodeRunFailed, "baseline build failed", runErr)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "fuzz run not started", runErr)
	}

	summary := summarize(job, dbPath, report)
	if err := formatter.Success(summary, summary.render); err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d node task(s) failed", len(report.FailedNodes())), runErr)
	}
	return nil
}

// interruptContext cancels on SIGINT or SIGTERM. In-flight builds are
// killed through their command context.
func interruptContext(parent context.Context, logger *slog.Logger) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, cancelling run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func summarize(job *config.Job, dbPath string, report *pipfuzz.Report) FuzzSummary {
	s := FuzzSummary{
		Device:   job.Device,
		Database: dbPath,
		Baseline: report.Baseline.Name,
		Solved:   report.CountSinks(pipfuzz.SinkSolved),
		Failed:   report.CountSinks(pipfuzz.SinkFailed),
		Nodes:    make([]NodeSummary, 0, len(report.Nodes)),
	}
	for _, n := range report.Nodes {
		ns := NodeSummary{Node: n.Node, Token: n.Token, Pending: n.Pending}
		for _, sink := range n.Sinks {
			if sink.State == pipfuzz.SinkSolved {
				ns.Solved = append(ns.Solved, sink.Sink)
			} else {
				ns.Failed = append(ns.Failed, sink.Sink)
			}
		}
		if n.Err != nil {
			ns.Error = n.Err.Error()
		}
		s.Nodes = append(s.Nodes, ns)
	}
	return s
}

func (s FuzzSummary) render(w io.Writer) {
	fmt.Fprintf(w, "%s: %d sink(s) solved, %d failed (baseline %s)\n", s.Device, s.Solved, s.Failed, s.Baseline)
	for _, n := range s.Nodes {
		mark := "✓"
		if n.Error != "" {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s [%s] solved=%d failed=%d pending=%d\n", mark, n.Node, n.Token, len(n.Solved), len(n.Failed), len(n.Pending))
		if n.Error != "" {
			fmt.Fprintf(w, "  %s\n", n.Error)
		}
	}
}

// commandError reports a job or setup error and returns the exit error.
func commandError(f *OutputFormatter, message string, err error) error {
	code := ErrCodeGeneric
	var le *config.LoadError
	if errors.As(err, &le) {
		code = le.Code
	}
	return f.Fail(ExitCommandError, code, message, err)
}
