// Package ir provides the shared data types for pipfuzz.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Arcs are ordered by (source, sink) so every collection of arcs has one
//     deterministic iteration order
//   - Images are referred to by content-addressed ID, never by path alone
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
