package pipfuzz

import (
	"sort"

	"github.com/roach88/pipfuzz/internal/ir"
)

// SinkGroup is one sink wire and its candidate sources, in discovery order.
type SinkGroup struct {
	Sink    string   `json:"sink"`
	Sources []string `json:"sources"`
}

// GroupBySink partitions arcs by sink. Groups are returned sorted by sink;
// sources keep the order in which their arcs appear. Only sinks with at
// least one source are returned.
func GroupBySink(arcs []ir.Arc) []SinkGroup {
	idx := make(map[string]int)
	var groups []SinkGroup
	for _, a := range arcs {
		i, ok := idx[a.Sink]
		if !ok {
			i = len(groups)
			idx[a.Sink] = i
			groups = append(groups, SinkGroup{Sink: a.Sink})
		}
		groups[i].Sources = append(groups[i].Sources, a.Source)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Sink < groups[j].Sink })
	return groups
}

// Plan runs discovery, both filters and grouping for one node.
func Plan(node ir.Node, universe ir.WireSet, opts Options) []SinkGroup {
	arcs := DiscoverArcs(node, opts.IncludeDownhill)
	arcs = ApplyNameFilter(arcs, universe, opts.NameFilter, opts.CombineWithAnd)
	arcs = ApplyArcFilter(arcs, universe, opts.ArcFilter)
	return GroupBySink(arcs)
}
