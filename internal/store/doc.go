// Package store provides the SQLite-backed device database for pipfuzz.
//
// The store is append-only and holds:
//   - Pips: solved (tile type, sink, source) -> configuration bits
//   - Conns: fixed connections, arcs that change no configuration bits
//   - Samples: audit log of every (sink, source, image) sample registered
//
// # Invariants
//
//   - Every write is stamped with a logical seq from the store clock, never a
//     timestamp. The clock resumes from MAX(seq) when a database is reopened.
//   - A sink's pips and conns are committed in one transaction; a failed sink
//     leaves nothing behind.
//   - Re-committing an identical pip is a no-op. Committing different bits for
//     an existing pip is a ConflictError.
//   - All reads are ordered: ORDER BY tile_type, sink, source COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - a single open connection: node tasks share the store and serialize here
package store
