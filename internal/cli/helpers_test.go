package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testNodes = `nodes:
  - name: R1C1_A0
    uphill:
      - {from: R1C1_W1, to: R1C1_A0}
      - {from: R1C1_W0, to: R1C1_A0}
  - name: R1C1_B0
    uphill:
      - {from: R1C1_W0, to: R1C1_B0}
`

// The template is itself a bit listing; the directive lands in a comment.
const testTemplate = "# ${arcs_attr}\nR1C1:PLC2 0 0\n"

// jobFixture is a job directory whose build command copies the design to
// the image and sets one extra bit per forced source.
type jobFixture struct {
	Dir string
	Job string
	DB  string
}

type fixtureOptions struct {
	Nodes     []string
	FailOn    string // source whose variant build exits non-zero
	FailAll   bool
	ExtraCUE  string
	NoCatalog bool
}

func newJobFixture(t *testing.T, fo fixtureOptions) *jobFixture {
	t.Helper()
	dir := t.TempDir()

	if len(fo.Nodes) == 0 {
		fo.Nodes = []string{"R1C1_A0"}
	}

	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	if fo.FailAll {
		script.WriteString("exit 1\n")
	}
	script.WriteString("cp \"$1\" \"$2\"\n")
	bits := map[string]string{"R1C1_W0": "R1C1:PLC2 1 1", "R1C1_W1": "R1C1:PLC2 2 2"}
	for _, src := range []string{"R1C1_W0", "R1C1_W1"} {
		action := fmt.Sprintf("echo %q >> \"$2\"", bits[src])
		if src == fo.FailOn {
			action = "echo synthesis failed >&2; exit 1"
		}
		fmt.Fprintf(&script, "if grep -q 'source=\"%s\"' \"$1\"; then %s; fi\n", src, action)
	}
	script.WriteString("exit 0\n")

	scriptPath := filepath.Join(dir, "build.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte(script.String()), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "design.v"), []byte(testTemplate), 0o644))
	if !fo.NoCatalog {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes.yaml"), []byte(testNodes), 0o644))
	}

	quoted := make([]string, len(fo.Nodes))
	for i, n := range fo.Nodes {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	job := fmt.Sprintf(`job: {
	device:   "TEST"
	template: "design.v"
	catalog:  "nodes.yaml"
	tiles: ["R1C1:PLC2"]
	nodes: [%s]
	build: command: ["sh", %q, "{design}", "{output}"]
	%s
}
`, strings.Join(quoted, ", "), scriptPath, fo.ExtraCUE)
	jobPath := filepath.Join(dir, "job.cue")
	require.NoError(t, os.WriteFile(jobPath, []byte(job), 0o644))

	return &jobFixture{Dir: dir, Job: jobPath, DB: filepath.Join(dir, "test.db")}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}
