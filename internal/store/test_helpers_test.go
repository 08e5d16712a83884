package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/pipfuzz/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// pip builds a pip record with the given bits.
func pip(tileType, sink, source string, bits ...ir.ConfigBit) ir.PipRecord {
	return ir.PipRecord{TileType: tileType, Sink: sink, Source: source, Bits: bits}
}
