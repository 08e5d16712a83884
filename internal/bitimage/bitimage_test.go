package bitimage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := `# baseline
R1C1:PLC2 3 7

R1C1:PLC2 0 12
R2C1:PLC2 5 1
`
	bits, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []TileBit{
		{Tile: "R1C1:PLC2", Frame: 0, Bit: 12},
		{Tile: "R1C1:PLC2", Frame: 3, Bit: 7},
		{Tile: "R2C1:PLC2", Frame: 5, Bit: 1},
	}, bits.Sorted())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"too few fields", "R1C1:PLC2 3\n"},
		{"bad frame", "R1C1:PLC2 x 3\n"},
		{"negative bit", "R1C1:PLC2 1 -3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	bits := Bits{
		{Tile: "B", Frame: 1, Bit: 1}: {},
		{Tile: "A", Frame: 2, Bit: 0}: {},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, bits))
	assert.Equal(t, "A 2 0\nB 1 1\n", buf.String())

	path := filepath.Join(t.TempDir(), "img.bits")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, bits, got)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.bits"))
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	base := Bits{
		{Tile: "T", Frame: 1, Bit: 1}: {},
		{Tile: "T", Frame: 2, Bit: 2}: {},
	}
	img := Bits{
		{Tile: "T", Frame: 1, Bit: 1}: {},
		{Tile: "T", Frame: 0, Bit: 5}: {},
	}

	assert.Equal(t, []Delta{
		{TileBit: TileBit{Tile: "T", Frame: 0, Bit: 5}, Set: true},
		{TileBit: TileBit{Tile: "T", Frame: 2, Bit: 2}, Set: false},
	}, Diff(base, img))

	assert.Empty(t, Diff(base, base))
}
