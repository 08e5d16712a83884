package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pipfuzz/internal/wires"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	Tile   string
	MaxRow int
	MaxCol int
}

// NormalizedWire is one line of normalize output.
type NormalizedWire struct {
	Wire      string `json:"wire"`
	Name      string `json:"name"`
	Neighbour string `json:"neighbour"`
	Base      string `json:"base"`
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize <wire>...",
		Short: "Rewrite global wire names relative to a tile",
		Long: `Rewrite device-global wire names the way the solver stores them when a
job sets normalize.

Examples:
  pipfuzz normalize --tile R10C10:PLC2 --max-row 50 --max-col 126 R9C10_V02S0100
  pipfuzz normalize --tile R28C2:TAP_DRIVE --max-row 50 --max-col 126 R28C1_H01W0100`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Tile, "tile", "", "tile to normalise against, e.g. R10C10:PLC2 (required)")
	cmd.Flags().IntVar(&opts.MaxRow, "max-row", 0, "highest row of the device (required)")
	cmd.Flags().IntVar(&opts.MaxCol, "max-col", 0, "highest column of the device (required)")
	_ = cmd.MarkFlagRequired("tile")
	_ = cmd.MarkFlagRequired("max-row")
	_ = cmd.MarkFlagRequired("max-col")

	return cmd
}

func runNormalize(opts *NormalizeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.MaxRow <= 0 || opts.MaxCol <= 0 {
		_ = formatter.Error(ErrCodeGeneric, "--max-row and --max-col must be positive", nil)
		return NewExitError(ExitCommandError, "invalid chip dimensions")
	}
	tile, err := wires.ParseTile(opts.Tile)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadWire, "invalid tile", err)
	}
	chip := wires.Chip{MaxRow: opts.MaxRow, MaxCol: opts.MaxCol}

	out := make([]NormalizedWire, 0, len(args))
	for _, wire := range args {
		name, err := wires.Normalize(chip, tile, wire)
		if err != nil {
			_ = formatter.Error(ErrCodeBadWire, err.Error(), map[string]string{"wire": wire})
			return WrapExitError(ExitCommandError, "cannot normalise wire", err)
		}
		n, base, err := wires.ParseNeighbour(name)
		if err != nil {
			_ = formatter.Error(ErrCodeBadWire, err.Error(), map[string]string{"wire": wire})
			return WrapExitError(ExitCommandError, "cannot normalise wire", err)
		}
		out = append(out, NormalizedWire{Wire: wire, Name: name, Neighbour: n.String(), Base: base})
	}

	return formatter.Success(out, func(w io.Writer) {
		for _, nw := range out {
			fmt.Fprintf(w, "%s\t%s\t%s\n", nw.Wire, nw.Name, nw.Neighbour)
		}
	})
}
