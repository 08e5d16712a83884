// Package solver deduces which configuration bits select each candidate
// source of a sink, by diffing design variants against a baseline image.
//
// For every sample the bits that differ from baseline are collected per
// tile. A bit set relative to baseline is recorded as F<frame>B<bit>; a bit
// cleared relative to baseline as !F<frame>B<bit>. The resulting pips are
// keyed by tile type, so one solve covers every tile of that type.
//
// A sample that changes no bit at all is either a fixed connection, or, for
// full-mux style sinks, the all-zero selector. Only one source can be the
// all-zero selector.
package solver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/pipfuzz/internal/bitimage"
	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/oracle"
	"github.com/roach88/pipfuzz/internal/store"
	"github.com/roach88/pipfuzz/internal/wires"
)

// DiffSolver implements oracle.Solver. It is safe for concurrent use; each
// context it opens belongs to one node task.
type DiffSolver struct {
	chip      wires.Chip
	normalize bool
	logger    *slog.Logger

	loads singleflight.Group
	mu    sync.Mutex
	cache map[string]bitimage.Bits // baseline bits by image ID
}

// New creates a solver. When normalize is set, global wire names are
// rewritten relative to each tile before commit.
func New(chip wires.Chip, normalize bool, logger *slog.Logger) *DiffSolver {
	if logger == nil {
		logger = slog.Default().With("component", "solver")
	}
	return &DiffSolver{
		chip:      chip,
		normalize: normalize,
		logger:    logger,
		cache:     make(map[string]bitimage.Bits),
	}
}

// OpenContext implements oracle.Solver.
func (s *DiffSolver) OpenContext(ctx context.Context, db *store.Store, req oracle.ContextRequest) (oracle.FuzzContext, error) {
	if req.Sink == "" {
		return nil, fmt.Errorf("open context: empty sink")
	}
	if len(req.Tiles) == 0 {
		return nil, fmt.Errorf("open context for %s: empty tile set", req.Sink)
	}
	if !slices.Contains(req.Tiles, req.PrimaryTile) {
		return nil, fmt.Errorf("open context for %s: primary tile %q not in tile set", req.Sink, req.PrimaryTile)
	}
	base, err := s.baseline(req.Baseline)
	if err != nil {
		return nil, fmt.Errorf("open context for %s: %w", req.Sink, err)
	}
	return &diffContext{
		solver:  s,
		req:     req,
		base:    base,
		tiles:   ir.NewWireSet(req.Tiles...),
		ignored: ir.NewWireSet(req.IgnoredTiles...),
	}, nil
}

// baseline parses a baseline image once per image ID, however many contexts
// ask for it concurrently.
func (s *DiffSolver) baseline(img ir.Image) (bitimage.Bits, error) {
	key := img.ID
	if key == "" {
		key = "path:" + img.Path
	}

	s.mu.Lock()
	bits, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return bits, nil
	}

	v, err, _ := s.loads.Do(key, func() (any, error) {
		bits, err := bitimage.ReadFile(img.Path)
		if err != nil {
			return nil, fmt.Errorf("load baseline: %w", err)
		}
		s.mu.Lock()
		s.cache[key] = bits
		s.mu.Unlock()
		s.logger.Debug("baseline loaded", "image", img.Name, "bits", len(bits))
		return bits, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(bitimage.Bits), nil
}

type sample struct {
	source string
	img    ir.Image
	bits   bitimage.Bits
}

type diffContext struct {
	solver  *DiffSolver
	req     oracle.ContextRequest
	base    bitimage.Bits
	tiles   ir.WireSet
	ignored ir.WireSet

	samples []sample
	solved  bool
}

// AddSample implements oracle.FuzzContext.
//
// The image is read immediately: a node task reuses the same artifact name
// for every variant it builds.
func (c *diffContext) AddSample(ctx context.Context, db *store.Store, source string, img ir.Image) error {
	if c.solved {
		return &InconsistencyError{Reason: ReasonAlreadySolved, Sink: c.req.Sink, Source: source, Message: "sample added after solve"}
	}
	bits, err := bitimage.ReadFile(img.Path)
	if err != nil {
		return fmt.Errorf("sample %s -> %s: %w", source, c.req.Sink, err)
	}
	if db != nil {
		if _, err := db.WriteSample(ctx, ir.SampleRecord{
			Sink:      c.req.Sink,
			Source:    source,
			ImageID:   img.ID,
			ImageName: img.Name,
		}); err != nil {
			return err
		}
	}
	c.samples = append(c.samples, sample{source: source, img: img, bits: bits})
	return nil
}

// Solve implements oracle.FuzzContext. The context is spent afterwards
// whether or not solving succeeded.
func (c *diffContext) Solve(ctx context.Context, db *store.Store) error {
	if c.solved {
		return &InconsistencyError{Reason: ReasonAlreadySolved, Sink: c.req.Sink, Message: "solve called twice"}
	}
	c.solved = true

	if len(c.samples) == 0 {
		return &InconsistencyError{Reason: ReasonNoSamples, Sink: c.req.Sink, Message: "no samples registered"}
	}
	if db == nil {
		return fmt.Errorf("solve %s: no device database", c.req.Sink)
	}

	deltas := make([]map[string][]ir.ConfigBit, len(c.samples))
	for i, smp := range c.samples {
		d, err := c.delta(smp)
		if err != nil {
			return err
		}
		deltas[i] = d
	}

	if err := c.checkAmbiguity(deltas); err != nil {
		return err
	}

	var pips []ir.PipRecord
	var conns []ir.ConnRecord
	var zero []string
	for i, smp := range c.samples {
		if len(deltas[i]) == 0 {
			zero = append(zero, smp.source)
			continue
		}
		for _, tile := range c.req.Tiles {
			bits, ok := deltas[i][tile]
			if !ok {
				continue
			}
			p, err := c.pip(tile, smp.source, bits)
			if err != nil {
				return err
			}
			pips = append(pips, p)
		}
	}

	if len(zero) > 0 {
		primary := c.req.PrimaryTile
		if c.req.FullMuxStyle {
			if len(zero) > 1 {
				return &InconsistencyError{
					Reason:  ReasonUnderdetermined,
					Sink:    c.req.Sink,
					Message: fmt.Sprintf("sources %s all leave every bit at baseline", strings.Join(zero, ", ")),
				}
			}
			p, err := c.pip(primary, zero[0], nil)
			if err != nil {
				return err
			}
			pips = append(pips, p)
		} else {
			for _, src := range zero {
				sink, source, err := c.names(primary, src)
				if err != nil {
					return err
				}
				conns = append(conns, ir.ConnRecord{TileType: ir.TileType(primary), Sink: sink, Source: source})
			}
		}
	}

	sort.Slice(pips, func(i, j int) bool {
		if pips[i].TileType != pips[j].TileType {
			return pips[i].TileType < pips[j].TileType
		}
		return pips[i].Source < pips[j].Source
	})

	if err := db.CommitSink(ctx, pips, conns); err != nil {
		return fmt.Errorf("solve %s: %w", c.req.Sink, err)
	}
	c.solver.logger.Debug("sink committed", "sink", c.req.Sink, "pips", len(pips), "conns", len(conns))
	return nil
}

// delta returns the sample's changed bits per candidate tile, dropping
// ignored tiles.
func (c *diffContext) delta(smp sample) (map[string][]ir.ConfigBit, error) {
	out := make(map[string][]ir.ConfigBit)
	for _, d := range bitimage.Diff(c.base, smp.bits) {
		if c.ignored.Has(d.Tile) {
			continue
		}
		if !c.tiles.Has(d.Tile) {
			return nil, &InconsistencyError{
				Reason:  ReasonUnexpectedTile,
				Sink:    c.req.Sink,
				Source:  smp.source,
				Tile:    d.Tile,
				Message: fmt.Sprintf("bit F%dB%d changed outside the tile set", d.Frame, d.Bit),
			}
		}
		out[d.Tile] = append(out[d.Tile], ir.ConfigBit{Frame: d.Frame, Bit: d.Bit, Invert: !d.Set})
	}
	for _, bits := range out {
		ir.SortConfigBits(bits)
	}
	return out, nil
}

func (c *diffContext) checkAmbiguity(deltas []map[string][]ir.ConfigBit) error {
	for _, tile := range c.req.Tiles {
		owner := make(map[string]string)
		for i, smp := range c.samples {
			bits, ok := deltas[i][tile]
			if !ok {
				continue
			}
			key := encode(bits)
			if prev, dup := owner[key]; dup && prev != smp.source {
				return &InconsistencyError{
					Reason:  ReasonAmbiguous,
					Sink:    c.req.Sink,
					Source:  smp.source,
					Tile:    tile,
					Message: fmt.Sprintf("same encoding [%s] as source %s", key, prev),
				}
			}
			owner[key] = smp.source
		}
	}
	return nil
}

func (c *diffContext) pip(tile, source string, bits []ir.ConfigBit) (ir.PipRecord, error) {
	sink, src, err := c.names(tile, source)
	if err != nil {
		return ir.PipRecord{}, err
	}
	return ir.PipRecord{TileType: ir.TileType(tile), Sink: sink, Source: src, Bits: bits}, nil
}

// names returns the sink and source as they are stored for tile.
func (c *diffContext) names(tile, source string) (string, string, error) {
	if !c.solver.normalize {
		return c.req.Sink, source, nil
	}
	t, err := wires.ParseTile(tile)
	if err != nil {
		return "", "", fmt.Errorf("normalise for %s: %w", tile, err)
	}
	norm := func(w string) (string, error) {
		if !wires.IsGlobalName(w) {
			return w, nil
		}
		return wires.Normalize(c.solver.chip, t, w)
	}
	sink, err := norm(c.req.Sink)
	if err != nil {
		return "", "", err
	}
	src, err := norm(source)
	if err != nil {
		return "", "", err
	}
	return sink, src, nil
}

func encode(bits []ir.ConfigBit) string {
	parts := make([]string, len(bits))
	for i, b := range bits {
		parts[i] = b.String()
	}
	return strings.Join(parts, " ")
}
