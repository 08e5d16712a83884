package pipfuzz

import (
	"github.com/roach88/pipfuzz/internal/ir"
)

// DiscoverArcs returns the node's candidate arcs, deduplicated and sorted by
// (source, sink). Uphill arcs are always included; downhill arcs only when
// includeDownhill is set, so the result with it set is a superset of the
// result without.
//
// Deduplication is by (source, sink) pair. A wire that is both an uphill and
// a downhill partner of the node stays a candidate for each sink it reaches.
func DiscoverArcs(node ir.Node, includeDownhill bool) []ir.Arc {
	seen := make(map[ir.Arc]struct{}, len(node.Uphill)+len(node.Downhill))
	arcs := make([]ir.Arc, 0, len(node.Uphill)+len(node.Downhill))
	add := func(list []ir.Arc) {
		for _, a := range list {
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			arcs = append(arcs, a)
		}
	}
	add(node.Uphill)
	if includeDownhill {
		add(node.Downhill)
	}
	ir.SortArcs(arcs)
	return arcs
}

// ApplyNameFilter keeps arcs whose endpoints pass pred.
//
// With combineWithAnd set an arc is kept only if pred accepts both its
// source and its sink. Otherwise it is kept if pred accepts either one.
// A nil pred accepts everything. Order is preserved.
func ApplyNameFilter(arcs []ir.Arc, universe ir.WireSet, pred NamePredicate, combineWithAnd bool) []ir.Arc {
	if pred == nil {
		pred = AcceptAllNames
	}
	out := make([]ir.Arc, 0, len(arcs))
	for _, a := range arcs {
		src, sink := pred(a.Source, universe), pred(a.Sink, universe)
		keep := src || sink
		if combineWithAnd {
			keep = src && sink
		}
		if keep {
			out = append(out, a)
		}
	}
	return out
}

// ApplyArcFilter keeps arcs accepted by pred. A nil pred accepts everything.
// Order is preserved.
func ApplyArcFilter(arcs []ir.Arc, universe ir.WireSet, pred ArcPredicate) []ir.Arc {
	if pred == nil {
		pred = AcceptAllArcs
	}
	out := make([]ir.Arc, 0, len(arcs))
	for _, a := range arcs {
		if pred(a, universe) {
			out = append(out, a)
		}
	}
	return out
}
