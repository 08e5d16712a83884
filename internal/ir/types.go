package ir

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Arc is a pip: an ordered (source, sink) pair of wire names.
// Equality and ordering are by the pair.
type Arc struct {
	Source string `json:"source"`
	Sink   string `json:"sink"`
}

// Less orders arcs by source, then sink.
func (a Arc) Less(b Arc) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.Sink < b.Sink
}

func (a Arc) String() string {
	return a.Source + " -> " + a.Sink
}

// SortArcs sorts arcs in place by (source, sink).
func SortArcs(arcs []Arc) {
	sort.Slice(arcs, func(i, j int) bool { return arcs[i].Less(arcs[j]) })
}

// Node is a logical wire net with the pips driving it (uphill) and the pips
// it drives (downhill).
type Node struct {
	Name     string `json:"name"`
	Uphill   []Arc  `json:"uphill"`
	Downhill []Arc  `json:"downhill"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	return Node{
		Name:     n.Name,
		Uphill:   append([]Arc(nil), n.Uphill...),
		Downhill: append([]Arc(nil), n.Downhill...),
	}
}

// WireSet is a set of wire names.
type WireSet map[string]struct{}

// NewWireSet builds a set from names.
func NewWireSet(names ...string) WireSet {
	s := make(WireSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s WireSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the set members in ascending order.
func (s WireSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Image is a handle to a configuration image produced by the build oracle.
type Image struct {
	ID   string `json:"id"`   // Content-addressed hash of the image bytes
	Name string `json:"name"` // Artifact name, carries the task namespace prefix
	Path string `json:"path"`
}

// IsZero reports whether the image handle is unset.
func (i Image) IsZero() bool {
	return i.ID == "" && i.Path == ""
}

// ConfigBit is one configuration bit inside a tile, addressed by frame and
// bit offset. Invert marks a bit that must be cleared (set in baseline).
type ConfigBit struct {
	Frame  int  `json:"frame"`
	Bit    int  `json:"bit"`
	Invert bool `json:"invert,omitempty"`
}

// String renders the bit as F<frame>B<bit>, prefixed with "!" when inverted.
func (b ConfigBit) String() string {
	s := fmt.Sprintf("F%dB%d", b.Frame, b.Bit)
	if b.Invert {
		return "!" + s
	}
	return s
}

// Less orders bits by frame, then bit, then polarity.
func (b ConfigBit) Less(o ConfigBit) bool {
	if b.Frame != o.Frame {
		return b.Frame < o.Frame
	}
	if b.Bit != o.Bit {
		return b.Bit < o.Bit
	}
	return !b.Invert && o.Invert
}

// ParseConfigBit parses the form produced by ConfigBit.String.
func ParseConfigBit(s string) (ConfigBit, error) {
	var b ConfigBit
	rest := s
	if strings.HasPrefix(rest, "!") {
		b.Invert = true
		rest = rest[1:]
	}
	if !strings.HasPrefix(rest, "F") {
		return ConfigBit{}, fmt.Errorf("invalid config bit %q", s)
	}
	frame, bit, ok := strings.Cut(rest[1:], "B")
	if !ok {
		return ConfigBit{}, fmt.Errorf("invalid config bit %q", s)
	}
	var err error
	if b.Frame, err = strconv.Atoi(frame); err != nil {
		return ConfigBit{}, fmt.Errorf("invalid frame in %q: %w", s, err)
	}
	if b.Bit, err = strconv.Atoi(bit); err != nil {
		return ConfigBit{}, fmt.Errorf("invalid bit in %q: %w", s, err)
	}
	return b, nil
}

// SortConfigBits sorts bits in place.
func SortConfigBits(bits []ConfigBit) {
	sort.Slice(bits, func(i, j int) bool { return bits[i].Less(bits[j]) })
}

// PipRecord is a solved pip: the bits that select source onto sink within
// a tile type.
type PipRecord struct {
	TileType string      `json:"tile_type"`
	Sink     string      `json:"sink"`
	Source   string      `json:"source"`
	Bits     []ConfigBit `json:"bits"`
	Seq      int64       `json:"seq"`
}

// ConnRecord is a fixed connection: an arc that changes no bits.
type ConnRecord struct {
	TileType string `json:"tile_type"`
	Sink     string `json:"sink"`
	Source   string `json:"source"`
	Seq      int64  `json:"seq"`
}

// SampleRecord is the audit entry for one registered sample.
type SampleRecord struct {
	ID        string `json:"id"` // Content-addressed hash
	Sink      string `json:"sink"`
	Source    string `json:"source"`
	ImageID   string `json:"image_id"`
	ImageName string `json:"image_name"`
	Seq       int64  `json:"seq"`
}

// TileType returns the type part of a tile name of the form NAME:TYPE.
// Names without a type separator are their own type.
func TileType(tile string) string {
	if i := strings.LastIndexByte(tile, ':'); i >= 0 {
		return tile[i+1:]
	}
	return tile
}
