package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/store"
)

// PipsOptions holds flags for the pips command.
type PipsOptions struct {
	*RootOptions
	Database string
	TileType string
}

// PipView is a pip with its bits rendered as F<frame>B<bit>.
type PipView struct {
	TileType string   `json:"tile_type"`
	Sink     string   `json:"sink"`
	Source   string   `json:"source"`
	Bits     []string `json:"bits"`
	Seq      int64    `json:"seq"`
}

// PipsResult is the pips command's output.
type PipsResult struct {
	Pips  []PipView       `json:"pips"`
	Conns []ir.ConnRecord `json:"conns"`
}

// NewPipsCommand creates the pips command.
func NewPipsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PipsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pips",
		Short: "List the pips and fixed connections in a device database",
		Long: `List solved pips and fixed connections recorded in a device database.

Examples:
  pipfuzz pips --db ./LIFCL-40.db
  pipfuzz pips --db ./LIFCL-40.db --tile-type CIB --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPips(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the device database (required)")
	cmd.Flags().StringVar(&opts.TileType, "tile-type", "", "only list this tile type")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runPips(opts *PipsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Opening creates a database; a typo in --db must not.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	pips, err := st.ListPips(ctx, opts.TileType)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list pips", err)
	}
	conns, err := st.ListConns(ctx, opts.TileType)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list connections", err)
	}

	result := PipsResult{Pips: make([]PipView, len(pips)), Conns: conns}
	for i, p := range pips {
		bits := make([]string, len(p.Bits))
		for j, b := range p.Bits {
			bits[j] = b.String()
		}
		result.Pips[i] = PipView{TileType: p.TileType, Sink: p.Sink, Source: p.Source, Bits: bits, Seq: p.Seq}
	}

	return formatter.Success(result, result.render)
}

func (r PipsResult) render(w io.Writer) {
	for _, p := range r.Pips {
		fmt.Fprintf(w, "%s.%s.%s %s\n", p.TileType, p.Source, p.Sink, strings.Join(p.Bits, " "))
	}
	for _, c := range r.Conns {
		fmt.Fprintf(w, "%s.%s.%s fixed\n", c.TileType, c.Source, c.Sink)
	}
	fmt.Fprintf(w, "%d pip(s), %d fixed connection(s)\n", len(r.Pips), len(r.Conns))
}
