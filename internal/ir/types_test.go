package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArc_Less(t *testing.T) {
	a := Arc{Source: "w0", Sink: "w1"}
	b := Arc{Source: "w0", Sink: "w2"}
	c := Arc{Source: "w1", Sink: "w0"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c), "source dominates sink in ordering")
	assert.False(t, a.Less(a))
}

func TestSortArcs(t *testing.T) {
	arcs := []Arc{
		{Source: "w2", Sink: "w1"},
		{Source: "w0", Sink: "w3"},
		{Source: "w0", Sink: "w1"},
	}
	SortArcs(arcs)

	assert.Equal(t, []Arc{
		{Source: "w0", Sink: "w1"},
		{Source: "w0", Sink: "w3"},
		{Source: "w2", Sink: "w1"},
	}, arcs)
}

func TestNode_CloneIsIndependent(t *testing.T) {
	n := Node{Name: "N1", Uphill: []Arc{{Source: "w0", Sink: "N1"}}}
	c := n.Clone()
	c.Uphill[0].Source = "changed"

	assert.Equal(t, "w0", n.Uphill[0].Source)
}

func TestWireSet(t *testing.T) {
	s := NewWireSet("b", "a", "b")

	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
	assert.Equal(t, []string{"a", "b"}, s.Sorted())
}

func TestConfigBit_RoundTrip(t *testing.T) {
	tests := []struct {
		bit  ConfigBit
		text string
	}{
		{ConfigBit{Frame: 12, Bit: 3}, "F12B3"},
		{ConfigBit{Frame: 0, Bit: 0, Invert: true}, "!F0B0"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.text, tt.bit.String())
			parsed, err := ParseConfigBit(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.bit, parsed)
		})
	}
}

func TestParseConfigBit_Invalid(t *testing.T) {
	for _, s := range []string{"", "12B3", "F12", "FxB3", "F1By"} {
		_, err := ParseConfigBit(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestSortConfigBits(t *testing.T) {
	bits := []ConfigBit{{Frame: 2, Bit: 0}, {Frame: 1, Bit: 5, Invert: true}, {Frame: 1, Bit: 5}}
	SortConfigBits(bits)

	assert.Equal(t, []ConfigBit{{Frame: 1, Bit: 5}, {Frame: 1, Bit: 5, Invert: true}, {Frame: 2, Bit: 0}}, bits)
}

func TestTileType(t *testing.T) {
	assert.Equal(t, "PLC", TileType("R16C14:PLC"))
	assert.Equal(t, "CIB", TileType("CIB"))
}

func TestImage_IsZero(t *testing.T) {
	assert.True(t, Image{}.IsZero())
	assert.False(t, Image{ID: "abc"}.IsZero())
}
