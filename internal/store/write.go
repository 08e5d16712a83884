package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/pipfuzz/internal/ir"
)

// ConflictError reports a pip that was already solved with different bits.
type ConflictError struct {
	TileType string
	Sink     string
	Source   string
	Existing []string
	New      []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("pip %s %s -> %s already recorded with bits [%s], got [%s]",
		e.TileType, e.Source, e.Sink, strings.Join(e.Existing, " "), strings.Join(e.New, " "))
}

// WriteSample appends a sample to the audit log and returns it with its
// content-addressed ID and seq filled in.
// Uses ON CONFLICT(id) DO NOTHING - the same (sink, source, image) registered
// twice keeps its first seq.
func (s *Store) WriteSample(ctx context.Context, sample ir.SampleRecord) (ir.SampleRecord, error) {
	id, err := ir.SampleID(sample.Sink, sample.Source, sample.ImageID)
	if err != nil {
		return ir.SampleRecord{}, fmt.Errorf("write sample: %w", err)
	}
	sample.ID = id
	sample.Seq = s.clock.Next()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO samples (id, sink, source, image_id, image_name, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sample.ID, sample.Sink, sample.Source, sample.ImageID, sample.ImageName, sample.Seq)
	if err != nil {
		return ir.SampleRecord{}, fmt.Errorf("write sample: %w", err)
	}
	return sample, nil
}

// CommitSink writes every pip and fixed connection solved for one sink in a
// single transaction. Either all records land or none do.
func (s *Store) CommitSink(ctx context.Context, pips []ir.PipRecord, conns []ir.ConnRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit sink: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, p := range pips {
		if err := s.writePip(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, c := range conns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conns (tile_type, sink, source, seq)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(tile_type, sink, source) DO NOTHING
		`, c.TileType, c.Sink, c.Source, s.clock.Next()); err != nil {
			return fmt.Errorf("commit sink: write conn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sink: commit: %w", err)
	}
	return nil
}

// writePip inserts a pip, or verifies an existing row carries the same bits.
func (s *Store) writePip(ctx context.Context, tx *sql.Tx, p ir.PipRecord) error {
	bits := bitStrings(p.Bits)
	bitsJSON, err := ir.MarshalCanonical(bits)
	if err != nil {
		return fmt.Errorf("commit sink: marshal bits: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO pips (tile_type, sink, source, bits, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tile_type, sink, source) DO NOTHING
	`, p.TileType, p.Sink, p.Source, string(bitsJSON), s.clock.Next())
	if err != nil {
		return fmt.Errorf("commit sink: insert pip: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit sink: rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Conflict - row already exists, compare bits
	var existingJSON string
	err = tx.QueryRowContext(ctx, `
		SELECT bits FROM pips WHERE tile_type = ? AND sink = ? AND source = ?
	`, p.TileType, p.Sink, p.Source).Scan(&existingJSON)
	if err != nil {
		return fmt.Errorf("commit sink: select existing pip: %w", err)
	}
	if existingJSON == string(bitsJSON) {
		return nil
	}

	var existing []string
	if err := json.Unmarshal([]byte(existingJSON), &existing); err != nil {
		return fmt.Errorf("commit sink: decode existing bits: %w", err)
	}
	return &ConflictError{
		TileType: p.TileType,
		Sink:     p.Sink,
		Source:   p.Source,
		Existing: existing,
		New:      bits,
	}
}

// bitStrings renders bits in sorted order so equal sets compare equal.
func bitStrings(bits []ir.ConfigBit) []string {
	sorted := append([]ir.ConfigBit(nil), bits...)
	ir.SortConfigBits(sorted)
	out := make([]string, len(sorted))
	for i, b := range sorted {
		out[i] = b.String()
	}
	return out
}
