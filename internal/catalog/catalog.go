// Package catalog resolves node name patterns to node records.
//
// The catalog is loaded from a YAML node dump exported from the vendor
// tools:
//
//	nodes:
//	  - name: R10C10_A0
//	    uphill:
//	      - {from: R10C10_H02W0701, to: R10C10_A0}
//	    downhill: []
package catalog

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pipfuzz/internal/ir"
)

// PatternError reports a node pattern that is not a valid regex.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid node pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Memory is an in-memory catalog. It is immutable after construction and
// safe for concurrent use.
type Memory struct {
	nodes  []ir.Node
	byName map[string]int
}

// NewMemory builds a catalog from nodes. Later duplicates of a name replace
// earlier ones in place.
func NewMemory(nodes []ir.Node) *Memory {
	m := &Memory{byName: make(map[string]int, len(nodes))}
	for _, n := range nodes {
		if i, ok := m.byName[n.Name]; ok {
			m.nodes[i] = n.Clone()
			continue
		}
		m.byName[n.Name] = len(m.nodes)
		m.nodes = append(m.nodes, n.Clone())
	}
	return m
}

// Len returns the number of nodes.
func (m *Memory) Len() int {
	return len(m.nodes)
}

// Resolve implements oracle.Catalog.
//
// Exact patterns name nodes directly. Regex patterns must match a whole node
// name. Results are in first-match order, each node at most once. A pattern
// matching nothing contributes nothing.
func (m *Memory) Resolve(ctx context.Context, patterns []string, regex bool) ([]ir.Node, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no node patterns given")
	}

	var res []*regexp.Regexp
	if regex {
		res = make([]*regexp.Regexp, len(patterns))
		for i, p := range patterns {
			re, err := regexp.Compile(`^(?:` + p + `)$`)
			if err != nil {
				return nil, &PatternError{Pattern: p, Err: err}
			}
			res[i] = re
		}
	}

	seen := make(map[string]bool)
	var out []ir.Node
	add := func(i int) {
		n := m.nodes[i]
		if seen[n.Name] {
			return
		}
		seen[n.Name] = true
		out = append(out, n.Clone())
	}

	for i, p := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !regex {
			if idx, ok := m.byName[p]; ok {
				add(idx)
			}
			continue
		}
		for idx, n := range m.nodes {
			if res[i].MatchString(n.Name) {
				add(idx)
			}
		}
	}
	return out, nil
}

type arcRecord struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type nodeRecord struct {
	Name     string      `yaml:"name"`
	Uphill   []arcRecord `yaml:"uphill"`
	Downhill []arcRecord `yaml:"downhill"`
}

type dump struct {
	Nodes []nodeRecord `yaml:"nodes"`
}

// Parse decodes a YAML node dump.
func Parse(data []byte) (*Memory, error) {
	var d dump
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse node dump: %w", err)
	}
	nodes := make([]ir.Node, 0, len(d.Nodes))
	for i, r := range d.Nodes {
		if r.Name == "" {
			return nil, fmt.Errorf("node %d: missing name", i)
		}
		n := ir.Node{Name: r.Name}
		for j, a := range r.Uphill {
			if a.From == "" || a.To == "" {
				return nil, fmt.Errorf("node %s: uphill arc %d: from and to are required", r.Name, j)
			}
			n.Uphill = append(n.Uphill, ir.Arc{Source: a.From, Sink: a.To})
		}
		for j, a := range r.Downhill {
			if a.From == "" || a.To == "" {
				return nil, fmt.Errorf("node %s: downhill arc %d: from and to are required", r.Name, j)
			}
			n.Downhill = append(n.Downhill, ir.Arc{Source: a.From, Sink: a.To})
		}
		nodes = append(nodes, n)
	}
	return NewMemory(nodes), nil
}

// LoadFile reads a YAML node dump from path.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node dump: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
