// pipfuzz discovers the configuration bits of FPGA interconnect pips.
//
// Usage:
//
//	pipfuzz fuzz <job.cue> [--db <path>] [--parallelism N] [--metrics-file <path>]
//	pipfuzz validate <job.cue>
//	pipfuzz pips --db <path> [--tile-type <type>]
//	pipfuzz normalize --tile <tile> --max-row N --max-col N <wire>...
//	pipfuzz test <scenarios-dir> [--update] [--filter <glob>]
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pipfuzz/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pipfuzz:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
