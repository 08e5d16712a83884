package wires

import (
	"fmt"
	"strconv"
	"strings"
)

// NeighbourKind classifies the prefix of a normalised wire name.
type NeighbourKind int

const (
	// Local wires carry no prefix.
	Local NeighbourKind = iota
	RelXY
	Branch
	BranchLeft
	BranchRight
	Spine
	HRow
	Global
	DQSGroup
)

var kindPrefixes = map[string]NeighbourKind{
	"BRANCH":   Branch,
	"BRANCH_L": BranchLeft,
	"BRANCH_R": BranchRight,
	"SPINE":    Spine,
	"HROW":     HRow,
	"G":        Global,
	"DQSG":     DQSGroup,
}

// Neighbour is the location a normalised wire refers to, relative to the
// tile it was normalised against. RelX grows east, RelY grows south.
type Neighbour struct {
	Kind NeighbourKind
	RelX int
	RelY int
}

func (n Neighbour) String() string {
	switch n.Kind {
	case Local:
		return "local"
	case RelXY:
		return fmt.Sprintf("rel(%d,%d)", n.RelX, n.RelY)
	}
	for prefix, k := range kindPrefixes {
		if k == n.Kind {
			return prefix
		}
	}
	return "unknown"
}

// ParseNeighbour splits a normalised wire name into its neighbour and base
// name. It is the inverse of the prefixes Normalize produces.
func ParseNeighbour(s string) (Neighbour, string, error) {
	prefix, base, ok := strings.Cut(s, ":")
	if !ok {
		return Neighbour{Kind: Local}, s, nil
	}
	if k, known := kindPrefixes[prefix]; known {
		return Neighbour{Kind: k}, base, nil
	}

	n := Neighbour{Kind: RelXY}
	if prefix == "" {
		return Neighbour{}, "", fmt.Errorf("empty position prefix in %q", s)
	}
	start := 0
	for i := 1; i <= len(prefix); i++ {
		if i < len(prefix) && !strings.ContainsRune("NESW", rune(prefix[i])) {
			continue
		}
		tok := prefix[start:i]
		start = i
		if len(tok) < 2 {
			return Neighbour{}, "", fmt.Errorf("bad position token %q in %q", tok, s)
		}
		v, err := strconv.Atoi(tok[1:])
		if err != nil {
			return Neighbour{}, "", fmt.Errorf("bad position token %q in %q", tok, s)
		}
		switch tok[0] {
		case 'N':
			n.RelY = -v
		case 'S':
			n.RelY = v
		case 'E':
			n.RelX = v
		case 'W':
			n.RelX = -v
		default:
			return Neighbour{}, "", fmt.Errorf("bad position token %q in %q", tok, s)
		}
	}
	return n, base, nil
}
