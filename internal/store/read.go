package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/pipfuzz/internal/ir"
)

// ListPips returns solved pips, optionally restricted to one tile type.
// An empty tileType lists every tile type.
//
// Returns an empty slice (not nil) if no pips exist.
func (s *Store) ListPips(ctx context.Context, tileType string) ([]ir.PipRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tile_type, sink, source, bits, seq
		FROM pips
		WHERE ? = '' OR tile_type = ?
		ORDER BY tile_type COLLATE BINARY ASC, sink COLLATE BINARY ASC, source COLLATE BINARY ASC
	`, tileType, tileType)
	if err != nil {
		return nil, fmt.Errorf("query pips: %w", err)
	}
	defer rows.Close()

	pips := []ir.PipRecord{}
	for rows.Next() {
		var p ir.PipRecord
		var bitsJSON string
		if err := rows.Scan(&p.TileType, &p.Sink, &p.Source, &bitsJSON, &p.Seq); err != nil {
			return nil, fmt.Errorf("scan pip: %w", err)
		}
		if p.Bits, err = decodeBits(bitsJSON); err != nil {
			return nil, fmt.Errorf("pip %s %s -> %s: %w", p.TileType, p.Source, p.Sink, err)
		}
		pips = append(pips, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pips: %w", err)
	}
	return pips, nil
}

// ListConns returns fixed connections, optionally restricted to one tile type.
func (s *Store) ListConns(ctx context.Context, tileType string) ([]ir.ConnRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tile_type, sink, source, seq
		FROM conns
		WHERE ? = '' OR tile_type = ?
		ORDER BY tile_type COLLATE BINARY ASC, sink COLLATE BINARY ASC, source COLLATE BINARY ASC
	`, tileType, tileType)
	if err != nil {
		return nil, fmt.Errorf("query conns: %w", err)
	}
	defer rows.Close()

	conns := []ir.ConnRecord{}
	for rows.Next() {
		var c ir.ConnRecord
		if err := rows.Scan(&c.TileType, &c.Sink, &c.Source, &c.Seq); err != nil {
			return nil, fmt.Errorf("scan conn: %w", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conns: %w", err)
	}
	return conns, nil
}

// ListSamples returns the samples registered for a sink in registration order.
func (s *Store) ListSamples(ctx context.Context, sink string) ([]ir.SampleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sink, source, image_id, image_name, seq
		FROM samples
		WHERE sink = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sink)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []ir.SampleRecord{}
	for rows.Next() {
		var r ir.SampleRecord
		if err := rows.Scan(&r.ID, &r.Sink, &r.Source, &r.ImageID, &r.ImageName, &r.Seq); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

func decodeBits(s string) ([]ir.ConfigBit, error) {
	var raw []string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("decode bits: %w", err)
	}
	bits := make([]ir.ConfigBit, 0, len(raw))
	for _, r := range raw {
		b, err := ir.ParseConfigBit(r)
		if err != nil {
			return nil, err
		}
		bits = append(bits, b)
	}
	return bits, nil
}
