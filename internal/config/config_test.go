package config

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/wires"
)

const minimalJob = `
job: {
	device:   "LIFCL-40"
	template: "cib.v"
	catalog:  "nodes.yaml"
	tiles: ["R10C10:PLC2", "R10C11:CIB"]
	nodes: ["R10C10_A0"]
	build: command: ["synth", "{design}", "{output}"]
}
`

func writeJob(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func loadErr(t *testing.T, err error) *LoadError {
	t.Helper()
	var le *LoadError
	require.True(t, errors.As(err, &le), "expected LoadError, got %v", err)
	return le
}

func TestLoad_Defaults(t *testing.T) {
	path := writeJob(t, minimalJob)
	job, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, "LIFCL-40", job.Device)
	assert.Equal(t, filepath.Join(dir, "cib.v"), job.Template)
	assert.Equal(t, filepath.Join(dir, "nodes.yaml"), job.Catalog)
	assert.Equal(t, filepath.Join(dir, "work"), job.Build.WorkDir)
	assert.Equal(t, []string{"synth", "{design}", "{output}"}, job.Build.Command)
	assert.Equal(t, filepath.Join(dir, "LIFCL-40.db"), job.DefaultDatabase())

	assert.False(t, job.Regex)
	assert.False(t, job.IncludeDownhill)
	assert.False(t, job.CombineWithAnd)
	assert.Zero(t, job.Parallelism)
	assert.Empty(t, job.IgnoreTiles)
	assert.Nil(t, job.NameFilter)
	assert.Nil(t, job.ArcFilter)
	assert.Nil(t, job.Chip)
	assert.Equal(t, wires.Chip{}, job.WireChip())
}

func TestLoad_FullJob(t *testing.T) {
	path := writeJob(t, `
job: {
	device:   "LIFCL-40"
	template: "/abs/cib.v"
	catalog:  "nodes.yaml"
	tiles: ["R10C10:PLC2"]
	nodes: ["R10C10_A[0-7]"]
	regex:            true
	include_downhill: true
	combine_with_and: true
	full_mux_style:   true
	ignore_tiles: ["R10C12:TAP_DRIVE"]
	parallelism: 4
	normalize:   true
	chip: {max_row: 52, max_col: 86}
	name_filter: {in_universe: true, exclude: ["VCC"]}
	arc_filter: {exclude_sources: ["^R10C10_J"]}
	build: {
		command: ["sh", "-c", "synth {design} > {output}"]
		workdir: "/tmp/pipfuzz"
	}
}
`)
	job, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/abs/cib.v", job.Template)
	assert.Equal(t, "/tmp/pipfuzz", job.Build.WorkDir)
	assert.Equal(t, wires.Chip{MaxRow: 52, MaxCol: 86}, job.WireChip())
	require.NotNil(t, job.NameFilter)
	assert.True(t, job.NameFilter.InUniverse)
	assert.Empty(t, job.NameFilter.Include)

	opts, err := job.Options()
	require.NoError(t, err)
	assert.Equal(t, []string{"R10C10_A[0-7]"}, opts.Patterns)
	assert.True(t, opts.Regex)
	assert.True(t, opts.IncludeDownhill)
	assert.True(t, opts.CombineWithAnd)
	assert.True(t, opts.FullMuxStyle)
	assert.Equal(t, 4, opts.Parallelism)
	assert.Equal(t, []string{"R10C12:TAP_DRIVE"}, opts.IgnoredTiles)
	assert.Equal(t, "/abs/cib.v", opts.Template)
	assert.True(t, opts.Baseline.IsZero())

	universe := ir.NewWireSet("R10C10_A0", "R10C10_VCC")
	require.NotNil(t, opts.NameFilter)
	assert.True(t, opts.NameFilter("R10C10_A0", universe))
	assert.False(t, opts.NameFilter("R10C10_B0", universe), "not in universe")
	assert.False(t, opts.NameFilter("R10C10_VCC", universe), "excluded")

	require.NotNil(t, opts.ArcFilter)
	assert.True(t, opts.ArcFilter(ir.Arc{Source: "R9C10_V02S0100", Sink: "R10C10_A0"}, universe))
	assert.False(t, opts.ArcFilter(ir.Arc{Source: "R10C10_JF0", Sink: "R10C10_A0"}, universe))
}

func TestOptions_NoFiltersAcceptEverything(t *testing.T) {
	job, err := Load(writeJob(t, minimalJob))
	require.NoError(t, err)
	opts, err := job.Options()
	require.NoError(t, err)
	assert.Nil(t, opts.NameFilter)
	assert.Nil(t, opts.ArcFilter)
}

func TestOptions_IncludeMatchesAny(t *testing.T) {
	job := &Job{
		Nodes:      []string{"n"},
		NameFilter: &NameFilter{Include: []string{"^A", "^B"}},
	}
	opts, err := job.Options()
	require.NoError(t, err)
	assert.True(t, opts.NameFilter("A1", nil))
	assert.True(t, opts.NameFilter("B1", nil))
	assert.False(t, opts.NameFilter("C1", nil))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"syntax", `job: {device: `, ErrCodeParse},
		{"no job", `other: 1`, ErrCodeNoJob},
		{"missing tiles", `job: {device: "d", template: "t", catalog: "c", nodes: ["n"], build: command: ["x"]}`, ErrCodeSchema},
		{"empty tiles", `job: {device: "d", template: "t", catalog: "c", tiles: [], nodes: ["n"], build: command: ["x"]}`, ErrCodeSchema},
		{"empty nodes", `job: {device: "d", template: "t", catalog: "c", tiles: ["t"], nodes: [], build: command: ["x"]}`, ErrCodeSchema},
		{"negative parallelism", `job: {device: "d", template: "t", catalog: "c", tiles: ["t"], nodes: ["n"], parallelism: -1, build: command: ["x"]}`, ErrCodeSchema},
		{"unknown field", `job: {device: "d", template: "t", catalog: "c", tiles: ["t"], nodes: ["n"], paralelism: 2, build: command: ["x"]}`, ErrCodeSchema},
		{"empty command", `job: {device: "d", template: "t", catalog: "c", tiles: ["t"], nodes: ["n"], build: command: []}`, ErrCodeSchema},
		{"normalize without chip", `job: {device: "d", template: "t", catalog: "c", tiles: ["t"], nodes: ["n"], normalize: true, build: command: ["x"]}`, ErrCodeNoChip},
		{"bad node regex", `job: {device: "d", template: "t", catalog: "c", tiles: ["t"], nodes: ["A["], regex: true, build: command: ["x"]}`, ErrCodeBadPattern},
		{"bad filter regex", `job: {device: "d", template: "t", catalog: "c", tiles: ["t"], nodes: ["n"], name_filter: exclude: ["("], build: command: ["x"]}`, ErrCodeBadPattern},
		{"bad arc regex", `job: {device: "d", template: "t", catalog: "c", tiles: ["t"], nodes: ["n"], arc_filter: include_sinks: ["*"], build: command: ["x"]}`, ErrCodeBadPattern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeJob(t, tt.src))
			require.Error(t, err)
			assert.Equal(t, tt.code, loadErr(t, err).Code, "error: %v", err)
		})
	}
}

func TestLoad_NonRegexNodesAreLiteral(t *testing.T) {
	// Bracketed names are legal node names when regex is off.
	job, err := Load(writeJob(t, `job: {device: "d", template: "t", catalog: "c", tiles: ["t"], nodes: ["A["], build: command: ["x"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"A["}, job.Nodes)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Equal(t, ErrCodeNotFound, loadErr(t, err).Code)
}

func TestLoadError_Position(t *testing.T) {
	path := writeJob(t, "job: {\n\tdevice: 3\n\ttemplate: \"t\"\n\tcatalog: \"c\"\n\ttiles: [\"t\"]\n\tnodes: [\"n\"]\n\tbuild: command: [\"x\"]\n}\n")
	_, err := Load(path)
	le := loadErr(t, err)
	assert.Equal(t, ErrCodeSchema, le.Code)
	assert.True(t, le.Pos.IsValid())
	assert.Regexp(t, regexp.MustCompile(`\.cue:\d+:\d+: E006: `), le.Error())

	plain := &LoadError{Code: ErrCodeGeneric, Message: "boom"}
	assert.Equal(t, "E001: boom", plain.Error())
}
