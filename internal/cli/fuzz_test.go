package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipfuzz/internal/pipfuzz"
	"github.com/roach88/pipfuzz/internal/store"
)

type fuzzResponse struct {
	Status string      `json:"status"`
	Data   FuzzSummary `json:"data"`
	Error  *CLIError   `json:"error"`
}

func decodeFuzz(t *testing.T, out string) fuzzResponse {
	t.Helper()
	var resp fuzzResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func TestFuzz_SolvesAndCommits(t *testing.T) {
	fx := newJobFixture(t, fixtureOptions{})
	metrics := filepath.Join(fx.Dir, "run.prom")

	out, _, err := execute(t, "--format", "json", "fuzz", fx.Job, "--db", fx.DB, "--metrics-file", metrics)
	require.NoError(t, err)

	resp := decodeFuzz(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "TEST", resp.Data.Device)
	assert.Equal(t, "base_design.bits", resp.Data.Baseline)
	assert.Equal(t, 1, resp.Data.Solved)
	assert.Equal(t, 0, resp.Data.Failed)
	require.Len(t, resp.Data.Nodes, 1)
	assert.Equal(t, "R1C1_A0", resp.Data.Nodes[0].Node)
	assert.NotEmpty(t, resp.Data.Nodes[0].Token)
	assert.Equal(t, []string{"R1C1_A0"}, resp.Data.Nodes[0].Solved)

	st, err := store.Open(fx.DB)
	require.NoError(t, err)
	defer st.Close()
	pips, err := st.ListPips(context.Background(), "PLC2")
	require.NoError(t, err)
	require.Len(t, pips, 2)
	assert.Equal(t, "R1C1_W0", pips[0].Source)
	assert.Equal(t, "F1B1", pips[0].Bits[0].String())
	assert.Equal(t, "R1C1_W1", pips[1].Source)
	assert.Equal(t, "F2B2", pips[1].Bits[0].String())

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `pipfuzz_nodes_total{result="ok"} 1`)
	assert.Contains(t, string(prom), "pipfuzz_samples_total 2")
}

func TestFuzz_DefaultDatabaseNextToJob(t *testing.T) {
	fx := newJobFixture(t, fixtureOptions{})

	out, _, err := execute(t, "fuzz", fx.Job)
	require.NoError(t, err)
	assert.Contains(t, out, "TEST: 1 sink(s) solved, 0 failed")
	assert.Contains(t, out, "✓ R1C1_A0")
	assert.FileExists(t, filepath.Join(fx.Dir, "TEST.db"))
}

func TestFuzz_NodeFailureExitsWithFailure(t *testing.T) {
	fx := newJobFixture(t, fixtureOptions{
		Nodes:  []string{"R1C1_A0", "R1C1_B0"},
		FailOn: "R1C1_W1",
	})

	out, _, err := execute(t, "--format", "json", "fuzz", fx.Job, "--db", fx.DB)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeFuzz(t, out)
	assert.Equal(t, 1, resp.Data.Solved, "the other node still finishes")
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Nodes, 2)

	a := resp.Data.Nodes[0]
	assert.Equal(t, "R1C1_A0", a.Node)
	assert.Equal(t, []string{"R1C1_A0"}, a.Failed)
	assert.Contains(t, a.Error, "synthesis failed")

	b := resp.Data.Nodes[1]
	assert.Empty(t, b.Error)
	assert.Equal(t, []string{"R1C1_B0"}, b.Solved)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestFuzz_BaselineFailure(t *testing.T) {
	fx := newJobFixture(t, fixtureOptions{FailAll: true})

	out, _, err := execute(t, "--format", "json", "fuzz", fx.Job, "--db", fx.DB)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeFuzz(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRunFailed, resp.Error.Code)
}

func TestFuzz_CommandErrors(t *testing.T) {
	t.Run("missing job", func(t *testing.T) {
		out, _, err := execute(t, "--format", "json", "fuzz", filepath.Join(t.TempDir(), "none.cue"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		resp := decodeFuzz(t, out)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E005", resp.Error.Code)
	})

	t.Run("schema violation", func(t *testing.T) {
		fx := newJobFixture(t, fixtureOptions{ExtraCUE: "parallelism: -1"})
		out, _, err := execute(t, "--format", "json", "fuzz", fx.Job)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		resp := decodeFuzz(t, out)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E006", resp.Error.Code)
	})

	t.Run("missing node dump", func(t *testing.T) {
		fx := newJobFixture(t, fixtureOptions{NoCatalog: true})
		out, _, err := execute(t, "--format", "json", "fuzz", fx.Job, "--db", fx.DB)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		resp := decodeFuzz(t, out)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeCatalog, resp.Error.Code)
		assert.NoFileExists(t, fx.DB)
	})

	t.Run("wrong arg count", func(t *testing.T) {
		_, _, err := execute(t, "fuzz")
		assert.Error(t, err)
	})
}

func TestFuzz_TokenOverride(t *testing.T) {
	fx := newJobFixture(t, fixtureOptions{Nodes: []string{"R1C1_A0", "R1C1_B0"}})

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	opts := &FuzzOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    fx.DB,
		Parallelism: 1,
		Tokens:      pipfuzz.NewFixedGenerator("t1", "t2"),
	}
	require.NoError(t, runFuzz(opts, fx.Job, cmd))

	resp := decodeFuzz(t, out.String())
	require.Len(t, resp.Data.Nodes, 2)
	assert.Equal(t, "t1", resp.Data.Nodes[0].Token)
	assert.Equal(t, "t2", resp.Data.Nodes[1].Token)
	assert.FileExists(t, filepath.Join(fx.Dir, "work", "t1_design.v"))
	assert.FileExists(t, filepath.Join(fx.Dir, "work", "t2_design.v"))
}
