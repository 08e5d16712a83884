// Package wires normalises device-global wire names into tile-relative names.
//
// Vendor wire names are global, of the form R<row>C<col>_<NAME>. A database
// shared by every tile of one type needs names that read the same in every
// location, so wires are rewritten relative to the tile being solved:
//
//   - VCC variants become G:VCC
//   - horizontal wires seen from a TAP tile become BRANCH_L: or BRANCH_R:
//   - global branch, spine and row wires become BRANCH:, SPINE:, HROW:
//   - other global clock wires become G:, DQS group wires DQSG:
//   - a wire at the tile's own position keeps its bare name
//   - any other wire gets a relative prefix ([NS]\d+)?([EW]\d+)?:
//
// Near the device edges vendor names are irregular so that the nominal
// position stays in bounds; those are regularised first so one wire never
// has two names.
package wires

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	wireRE = regexp.MustCompile(`^R(\d+)C(\d+)_(.+)$`)
	tileRE = regexp.MustCompile(`R(\d+)C(\d+)`)

	globalHBranchRE = regexp.MustCompile(`^HPBX(\d{2})00$`)
	globalSpineRE   = regexp.MustCompile(`^VPSX(\d{2})00$`)
	globalHRowRE    = regexp.MustCompile(`^HPRX(\d{2})00$`)

	// Wires that are global in full and take the G: prefix.
	fullGlobalREs = []*regexp.Regexp{
		regexp.MustCompile(`^([LR])HPRX(\d+)$`),
		regexp.MustCompile(`^J([HV])F([NESW])(\d+)_(DCSMUX|CMUX)_CORE_(DCSMUX|CMUX)(\d)$`),
		regexp.MustCompile(`^(.*)(.)MID_CORE_(.)MIDMUX$`),
		regexp.MustCompile(`^JECLKOUT(\d)_ECLKCASMUX_CORE_ECLKCASMUX(\d+)$`),
		regexp.MustCompile(`^JMUXIN(\d+)_ECLKBANK_CORE_ECLKBANK(\d+)$`),
	}
	dqsGroupRE = regexp.MustCompile(`^J(WRPNTR\d|RDPNTR\d|DQSR90|DQSW270|DQSW)_DQSBUF_CORE_I_DQS_TOP$`)

	hWireRE = regexp.MustCompile(`^H(\d{2})([EW])(\d{2})(\d{2})$`)
	vWireRE = regexp.MustCompile(`^V(\d{2})([NS])(\d{2})(\d{2})$`)
)

// Chip carries the device dimensions needed for edge handling.
type Chip struct {
	MaxRow int `json:"max_row"`
	MaxCol int `json:"max_col"`
}

// Tile is a tile name and its grid position (X is the column, Y the row).
type Tile struct {
	Name string
	X    int
	Y    int
}

// ParseTile extracts the grid position encoded as R<row>C<col> in a tile name.
func ParseTile(name string) (Tile, error) {
	m := tileRE.FindStringSubmatch(name)
	if m == nil {
		return Tile{}, fmt.Errorf("tile %q has no R<row>C<col> position", name)
	}
	y, _ := strconv.Atoi(m[1])
	x, _ := strconv.Atoi(m[2])
	return Tile{Name: name, X: x, Y: y}, nil
}

// IsGlobalName reports whether wire looks like a vendor global name that
// Normalize can rewrite.
func IsGlobalName(wire string) bool {
	return wireRE.MatchString(wire)
}

// Normalize rewrites a global wire name relative to tile.
func Normalize(chip Chip, tile Tile, wire string) (string, error) {
	m := wireRE.FindStringSubmatch(wire)
	if m == nil {
		return "", fmt.Errorf("invalid wire name %q", wire)
	}
	wy, _ := strconv.Atoi(m[1])
	wx, _ := strconv.Atoi(m[2])
	wn := m[3]

	if strings.HasSuffix(wn, "VCCHPRX") || strings.HasSuffix(wn, "VCCHPBX") || strings.HasSuffix(wn, "VCC") {
		return "G:VCC", nil
	}
	if strings.Contains(tile.Name, "TAP") && strings.HasPrefix(wn, "H") {
		switch {
		case wx < tile.X:
			return "BRANCH_L:" + wn, nil
		case wx > tile.X:
			return "BRANCH_R:" + wn, nil
		default:
			return "", fmt.Errorf("unable to determine TAP side of %s in %s", wire, tile.Name)
		}
	}
	switch {
	case globalHBranchRE.MatchString(wn):
		return "BRANCH:" + wn, nil
	case globalSpineRE.MatchString(wn):
		return "SPINE:" + wn, nil
	case globalHRowRE.MatchString(wn):
		return "HROW:" + wn, nil
	case isFullGlobal(wn):
		return "G:" + wn, nil
	case dqsGroupRE.MatchString(wn):
		return "DQSG:" + wn, nil
	}

	wn, wx, wy, err := HandleEdgeName(chip, tile.X, tile.Y, wx, wy, wn)
	if err != nil {
		return "", err
	}
	if wx == tile.X && wy == tile.Y {
		return wn, nil
	}

	var prefix strings.Builder
	if wy < tile.Y {
		fmt.Fprintf(&prefix, "N%d", tile.Y-wy)
	}
	if wy > tile.Y {
		fmt.Fprintf(&prefix, "S%d", wy-tile.Y)
	}
	if wx > tile.X {
		fmt.Fprintf(&prefix, "E%d", wx-tile.X)
	}
	if wx < tile.X {
		fmt.Fprintf(&prefix, "W%d", tile.X-wx)
	}
	return prefix.String() + ":" + wn, nil
}

func isFullGlobal(wn string) bool {
	for _, re := range fullGlobalREs {
		if re.MatchString(wn) {
			return true
		}
	}
	return false
}

// HandleEdgeName regularises the irregular names used near device edges,
// returning the name and nominal position the wire would have in the
// interior. Names needing no fix-up are returned unchanged.
func HandleEdgeName(chip Chip, tx, ty, wx, wy int, wn string) (string, int, int, error) {
	if hm := hWireRE.FindStringSubmatch(wn); hm != nil {
		dir, track, seg := hm[2], hm[3], hm[4]
		switch hm[1] {
		case "01":
			// H01xyy00 --> x+1, H01xyy01
			if tx == chip.MaxCol-1 {
				if seg != "00" {
					return "", 0, 0, fmt.Errorf("unexpected H01 segment in %s at edge", wn)
				}
				return "H01" + dir + track + "01", wx + 1, wy, nil
			}
		case "02":
			if tx == 1 {
				if dir == "E" && wx == 1 && seg == "02" {
					return "H02E" + track + "01", wx - 1, wy, nil
				} else if dir == "W" && wx == 1 && seg == "00" {
					return "H02W" + track + "01", wx - 1, wy, nil
				}
			} else if tx == chip.MaxCol-1 {
				if dir == "E" && wx == chip.MaxCol-1 && seg == "00" {
					return "H02E" + track + "01", wx + 1, wy, nil
				} else if dir == "W" && wx == chip.MaxCol-1 && seg == "02" {
					return "H02W" + track + "01", wx + 1, wy, nil
				}
			}
		case "06":
			n, _ := strconv.Atoi(seg)
			if tx <= 5 {
				if dir == "W" {
					return "H06W" + track + "03", wx - (3 - n), wy, nil
				}
				return "H06E" + track + "03", wx - (n - 3), wy, nil
			} else if tx >= chip.MaxCol-5 {
				if dir == "W" {
					return "H06W" + track + "03", wx + (n - 3), wy, nil
				}
				return "H06E" + track + "03", wx + (3 - n), wy, nil
			}
		default:
			return "", 0, 0, fmt.Errorf("bad horizontal wire %s", wn)
		}
	}
	if vm := vWireRE.FindStringSubmatch(wn); vm != nil {
		dir, track, seg := vm[2], vm[3], vm[4]
		switch vm[1] {
		case "01":
			if ty == 1 && wy == 1 {
				if (dir == "N" && seg == "00") || (dir == "S" && seg == "01") {
					return "V01" + dir + track + "01", wx, wy - 1, nil
				}
			}
		case "02":
			if ty == 1 {
				if dir == "S" && wy == 1 && seg == "02" {
					return "V02S" + track + "01", wx, wy - 1, nil
				}
				if dir == "N" && wy == 1 && seg == "00" {
					return "V02N" + track + "01", wx, wy - 1, nil
				}
			} else if ty == chip.MaxRow-1 {
				if dir == "S" && wy == chip.MaxRow-1 && seg == "00" {
					return "V02S" + track + "01", wx, wy + 1, nil
				}
				if dir == "N" && wy == chip.MaxRow-1 && seg == "02" {
					return "V02N" + track + "01", wx, wy + 1, nil
				}
			}
		case "06":
			n, _ := strconv.Atoi(seg)
			if ty <= 5 {
				if dir == "N" {
					return "V06N" + track + "03", wx, wy - (3 - n), nil
				}
				return "V06S" + track + "03", wx, wy - (n - 3), nil
			} else if ty >= chip.MaxRow-5 {
				if dir == "N" {
					return "V06N" + track + "03", wx, wy + (n - 3), nil
				}
				return "V06S" + track + "03", wx, wy + (3 - n), nil
			}
		default:
			return "", 0, 0, fmt.Errorf("bad vertical wire %s", wn)
		}
	}
	return wn, wx, wy, nil
}
