// Package bitimage reads and compares configuration images in their text
// bit-listing form.
//
// Each non-blank line names one set bit:
//
//	<tile> <frame> <bit>
//
// Lines starting with '#' are comments.
package bitimage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// TileBit addresses one configuration bit of the device.
type TileBit struct {
	Tile  string
	Frame int
	Bit   int
}

// Less orders by tile, frame, bit.
func (b TileBit) Less(o TileBit) bool {
	if b.Tile != o.Tile {
		return b.Tile < o.Tile
	}
	if b.Frame != o.Frame {
		return b.Frame < o.Frame
	}
	return b.Bit < o.Bit
}

// Bits is the set of bits set in one image.
type Bits map[TileBit]struct{}

// Has reports whether b is set.
func (s Bits) Has(b TileBit) bool {
	_, ok := s[b]
	return ok
}

// Sorted returns the set bits in order.
func (s Bits) Sorted() []TileBit {
	out := make([]TileBit, 0, len(s))
	for b := range s {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Parse reads a bit listing.
func Parse(r io.Reader) (Bits, error) {
	bits := Bits{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected <tile> <frame> <bit>, got %q", line, text)
		}
		frame, err := strconv.Atoi(fields[1])
		if err != nil || frame < 0 {
			return nil, fmt.Errorf("line %d: bad frame %q", line, fields[1])
		}
		bit, err := strconv.Atoi(fields[2])
		if err != nil || bit < 0 {
			return nil, fmt.Errorf("line %d: bad bit %q", line, fields[2])
		}
		bits[TileBit{Tile: fields[0], Frame: frame, Bit: bit}] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read bit listing: %w", err)
	}
	return bits, nil
}

// ReadFile parses the bit listing at path.
func ReadFile(path string) (Bits, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bits, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bits, nil
}

// Write emits bits in sorted order, one per line.
func Write(w io.Writer, bits Bits) error {
	bw := bufio.NewWriter(w)
	for _, b := range bits.Sorted() {
		if _, err := fmt.Fprintf(bw, "%s %d %d\n", b.Tile, b.Frame, b.Bit); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Delta is a bit whose state differs from baseline. Set is true when the
// bit is set in the image but not in the baseline.
type Delta struct {
	TileBit
	Set bool
}

// Diff returns the bits that differ between base and img, sorted.
func Diff(base, img Bits) []Delta {
	var out []Delta
	for b := range img {
		if !base.Has(b) {
			out = append(out, Delta{TileBit: b, Set: true})
		}
	}
	for b := range base {
		if !img.Has(b) {
			out = append(out, Delta{TileBit: b, Set: false})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j].TileBit) })
	return out
}
