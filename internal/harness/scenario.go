package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/pipfuzz"
)

// Scenario defines one fuzz run and what it must do.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Nodes is the catalog the run resolves against.
	Nodes []NodeSpec `yaml:"nodes"`

	Run RunSpec `yaml:"run"`

	// FailBuilds lists source wires whose variant builds fail.
	FailBuilds []string `yaml:"fail_builds,omitempty"`

	// FailSolves lists sinks whose solve fails.
	FailSolves []string `yaml:"fail_solves,omitempty"`

	// FailOpens lists sinks for which the solver refuses a context.
	FailOpens []string `yaml:"fail_opens,omitempty"`

	// FailBaseline makes every build fail, the baseline first.
	FailBaseline bool `yaml:"fail_baseline,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// NodeSpec is one catalog node.
type NodeSpec struct {
	Name     string    `yaml:"name"`
	Uphill   []ArcSpec `yaml:"uphill,omitempty"`
	Downhill []ArcSpec `yaml:"downhill,omitempty"`
}

// ArcSpec is one arc as written in a scenario.
type ArcSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// RunSpec mirrors the job options that shape planning.
type RunSpec struct {
	Patterns        []string        `yaml:"patterns"`
	Regex           bool            `yaml:"regex,omitempty"`
	IncludeDownhill bool            `yaml:"include_downhill,omitempty"`
	CombineWithAnd  bool            `yaml:"combine_with_and,omitempty"`
	NameFilter      *NameFilterSpec `yaml:"name_filter,omitempty"`
	ArcFilter       *ArcFilterSpec  `yaml:"arc_filter,omitempty"`
	Tiles           []string        `yaml:"tiles,omitempty"`
	IgnoredTiles    []string        `yaml:"ignored_tiles,omitempty"`
	FullMuxStyle    bool            `yaml:"full_mux_style,omitempty"`
	Parallelism     int             `yaml:"parallelism,omitempty"`

	// Tokens are issued to node tasks in order. Default task1, task2, ...
	Tokens []string `yaml:"tokens,omitempty"`
}

// NameFilterSpec is the scenario form of a name filter.
type NameFilterSpec struct {
	InUniverse bool     `yaml:"in_universe,omitempty"`
	Include    []string `yaml:"include,omitempty"`
	Exclude    []string `yaml:"exclude,omitempty"`
}

// ArcFilterSpec is the scenario form of an arc filter.
type ArcFilterSpec struct {
	IncludeSources []string `yaml:"include_sources,omitempty"`
	ExcludeSources []string `yaml:"exclude_sources,omitempty"`
	IncludeSinks   []string `yaml:"include_sinks,omitempty"`
	ExcludeSinks   []string `yaml:"exclude_sinks,omitempty"`
}

// Assertion validates what the run did.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node narrows sink_group and error to one node task.
	Node string `yaml:"node,omitempty"`

	// Sink is required by every type except ignored_tiles.
	Sink string `yaml:"sink,omitempty"`

	// Sources is the expected order (sink_group, sample_order).
	Sources []string `yaml:"sources,omitempty"`

	// Count is the expected context count (context_count).
	Count int `yaml:"count,omitempty"`

	// Tiles is the expected ignored tile list (ignored_tiles).
	Tiles []string `yaml:"tiles,omitempty"`

	// Code is a pipfuzz error code, or "none" for a clean run (error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertSinkGroup    = "sink_group"
	AssertContextCount = "context_count"
	AssertSampleOrder  = "sample_order"
	AssertNoContext    = "no_context"
	AssertIgnoredTiles = "ignored_tiles"
	AssertError        = "error"
)

// CodeNone asserts a run with no error.
const CodeNone = "none"

// defaultTile is used when a scenario names no tiles.
const defaultTile = "R1C1:PLC2"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir, sorted. A
// non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// catalogNodes converts the scenario catalog.
func (s *Scenario) catalogNodes() []ir.Node {
	nodes := make([]ir.Node, len(s.Nodes))
	for i, n := range s.Nodes {
		node := ir.Node{Name: n.Name}
		for _, a := range n.Uphill {
			node.Uphill = append(node.Uphill, ir.Arc{Source: a.From, Sink: a.To})
		}
		for _, a := range n.Downhill {
			node.Downhill = append(node.Downhill, ir.Arc{Source: a.From, Sink: a.To})
		}
		nodes[i] = node
	}
	return nodes
}

func (r RunSpec) tiles() []string {
	if len(r.Tiles) == 0 {
		return []string{defaultTile}
	}
	return r.Tiles
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}
	for i, n := range s.Nodes {
		if n.Name == "" {
			return fmt.Errorf("nodes[%d]: name is required", i)
		}
		for j, a := range append(append([]ArcSpec(nil), n.Uphill...), n.Downhill...) {
			if a.From == "" || a.To == "" {
				return fmt.Errorf("nodes[%d] (%s): arc %d: from and to are required", i, n.Name, j)
			}
		}
	}
	if s.Run.Parallelism < 0 {
		return fmt.Errorf("run.parallelism must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSinkGroup, AssertSampleOrder:
		if a.Sink == "" {
			return fmt.Errorf("assertions[%d]: sink is required for %s", index, a.Type)
		}
		if len(a.Sources) == 0 {
			return fmt.Errorf("assertions[%d]: sources list is required for %s", index, a.Type)
		}
	case AssertContextCount:
		if a.Sink == "" {
			return fmt.Errorf("assertions[%d]: sink is required for context_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for context_count", index)
		}
	case AssertNoContext:
		if a.Sink == "" {
			return fmt.Errorf("assertions[%d]: sink is required for no_context", index)
		}
	case AssertIgnoredTiles:
		if len(a.Tiles) == 0 {
			return fmt.Errorf("assertions[%d]: tiles list is required for ignored_tiles", index)
		}
	case AssertError:
		switch pipfuzz.ErrorCode(a.Code) {
		case CodeNone, pipfuzz.ErrCodeConfiguration, pipfuzz.ErrCodeBuildFailed, pipfuzz.ErrCodeSolverFailed:
		default:
			return fmt.Errorf("assertions[%d]: unknown error code %q", index, a.Code)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
