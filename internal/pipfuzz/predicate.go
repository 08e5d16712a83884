package pipfuzz

import (
	"regexp"

	"github.com/roach88/pipfuzz/internal/ir"
)

// NamePredicate decides whether a wire is of interest, given the universe of
// resolved node names.
type NamePredicate func(wire string, universe ir.WireSet) bool

// ArcPredicate decides whether an arc is of interest, given the universe of
// resolved node names.
type ArcPredicate func(arc ir.Arc, universe ir.WireSet) bool

// AcceptAllNames is the default name predicate.
func AcceptAllNames(string, ir.WireSet) bool { return true }

// AcceptAllArcs is the default arc predicate.
func AcceptAllArcs(ir.Arc, ir.WireSet) bool { return true }

// InUniverse accepts wires that are themselves resolved nodes.
func InUniverse(wire string, universe ir.WireSet) bool {
	return universe.Has(wire)
}

// MatchNames accepts wires matching at least one include pattern (any wire
// when include is empty) and no exclude pattern.
func MatchNames(include, exclude []*regexp.Regexp) NamePredicate {
	return func(wire string, _ ir.WireSet) bool {
		return matches(wire, include, exclude)
	}
}

// AllNames accepts a wire only when every predicate does. With no predicates
// it accepts everything.
func AllNames(preds ...NamePredicate) NamePredicate {
	return func(wire string, universe ir.WireSet) bool {
		for _, p := range preds {
			if !p(wire, universe) {
				return false
			}
		}
		return true
	}
}

// ArcPatterns filters arcs by regexes on either endpoint. Empty include
// lists accept everything.
type ArcPatterns struct {
	IncludeSources []*regexp.Regexp
	ExcludeSources []*regexp.Regexp
	IncludeSinks   []*regexp.Regexp
	ExcludeSinks   []*regexp.Regexp
}

// Predicate returns the arc predicate for p.
func (p ArcPatterns) Predicate() ArcPredicate {
	return func(arc ir.Arc, _ ir.WireSet) bool {
		return matches(arc.Source, p.IncludeSources, p.ExcludeSources) &&
			matches(arc.Sink, p.IncludeSinks, p.ExcludeSinks)
	}
}

// AllArcs accepts an arc only when every predicate does.
func AllArcs(preds ...ArcPredicate) ArcPredicate {
	return func(arc ir.Arc, universe ir.WireSet) bool {
		for _, p := range preds {
			if !p(arc, universe) {
				return false
			}
		}
		return true
	}
}

// RejectSource rejects arcs driven by any of the given wires.
func RejectSource(sources ...string) ArcPredicate {
	rejected := ir.NewWireSet(sources...)
	return func(arc ir.Arc, _ ir.WireSet) bool {
		return !rejected.Has(arc.Source)
	}
}

func matches(s string, include, exclude []*regexp.Regexp) bool {
	if len(include) > 0 {
		ok := false
		for _, re := range include {
			if re.MatchString(s) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, re := range exclude {
		if re.MatchString(s) {
			return false
		}
	}
	return true
}
