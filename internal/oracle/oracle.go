// Package oracle defines the collaborators the pip fuzzer drives: the node
// catalog, the design-build toolchain and the bit-difference solver.
//
// Production implementations live in internal/catalog, internal/build and
// internal/solver. Recording fakes for tests live in internal/testutil.
package oracle

import (
	"context"

	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/store"
)

// DirectiveKey is the substitution key carrying the arc-forcing directive.
// An empty value builds the unconstrained baseline.
const DirectiveKey = "arcs_attr"

// Catalog resolves node name patterns to node records.
//
// A malformed pattern is an error. A pattern matching nothing contributes no
// nodes. Returned nodes are snapshots the caller may keep.
type Catalog interface {
	Resolve(ctx context.Context, patterns []string, regex bool) ([]ir.Node, error)
}

// Builder compiles a design template with substitutions into a
// configuration image. Every artifact it writes is named with prefix.
type Builder interface {
	Build(ctx context.Context, template string, subst map[string]string, prefix string) (ir.Image, error)
}

// ContextRequest scopes one sink's fuzz context.
type ContextRequest struct {
	Baseline     ir.Image
	Tiles        []string // Candidate tile set
	Sink         string
	PrimaryTile  string
	IgnoredTiles []string
	FullMuxStyle bool
}

// Solver opens a fuzz context per sink.
type Solver interface {
	OpenContext(ctx context.Context, db *store.Store, req ContextRequest) (FuzzContext, error)
}

// FuzzContext accumulates samples for one sink. Solve is terminal.
type FuzzContext interface {
	AddSample(ctx context.Context, db *store.Store, source string, img ir.Image) error
	Solve(ctx context.Context, db *store.Store) error
}
