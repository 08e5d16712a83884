package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pipfuzz/internal/catalog"
	"github.com/roach88/pipfuzz/internal/config"
	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/pipfuzz"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// PlanResult is the validate command's output.
type PlanResult struct {
	Device string     `json:"device"`
	Nodes  []NodePlan `json:"nodes"`
	Builds int        `json:"builds"` // Variant builds a fuzz run would start, excluding baseline
}

// NodePlan is the sink groups one node task would fuzz.
type NodePlan struct {
	Node  string              `json:"node"`
	Sinks []pipfuzz.SinkGroup `json:"sinks"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <job.cue>",
		Short: "Check a job file and show what a fuzz run would do",
		Long: `Check a job file against the job schema, resolve its node patterns
against the node dump and list the sink groups each node task would fuzz.
Nothing is built and no database is opened.

Examples:
  pipfuzz validate ./jobs/cib.cue
  pipfuzz validate ./jobs/cib.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, jobPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	formatter.VerboseLog("Loading %s", jobPath)
	job, err := config.Load(jobPath)
	if err != nil {
		return commandError(formatter, "invalid job file", err)
	}
	runOpts, err := job.Options()
	if err != nil {
		return commandError(formatter, "invalid job file", err)
	}

	formatter.VerboseLog("Loading node dump %s", job.Catalog)
	nodes, err := catalog.LoadFile(job.Catalog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to load node dump", err)
	}

	resolved, err := nodes.Resolve(cmd.Context(), runOpts.Patterns, runOpts.Regex)
	if err != nil {
		return commandError(formatter, "invalid node pattern", err)
	}
	universe := make(ir.WireSet, len(resolved))
	for _, n := range resolved {
		universe[n.Name] = struct{}{}
	}

	result := PlanResult{Device: job.Device, Nodes: make([]NodePlan, 0, len(resolved))}
	for _, n := range resolved {
		groups := pipfuzz.Plan(n, universe, runOpts)
		for _, g := range groups {
			result.Builds += len(g.Sources)
		}
		result.Nodes = append(result.Nodes, NodePlan{Node: n.Name, Sinks: groups})
	}

	return formatter.Success(result, result.render)
}

func (r PlanResult) render(w io.Writer) {
	fmt.Fprintf(w, "✓ %s: %d node(s), %d variant build(s)\n", r.Device, len(r.Nodes), r.Builds)
	for _, n := range r.Nodes {
		if len(n.Sinks) == 0 {
			fmt.Fprintf(w, "  %s: no qualifying arcs\n", n.Node)
			continue
		}
		fmt.Fprintf(w, "  %s\n", n.Node)
		for _, g := range n.Sinks {
			fmt.Fprintf(w, "    %s <- %s\n", g.Sink, strings.Join(g.Sources, ", "))
		}
	}
}
