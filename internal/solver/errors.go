package solver

import (
	"errors"
	"fmt"
)

// Reason categorizes why a sink could not be solved.
type Reason string

const (
	// ReasonNoSamples indicates Solve was called with nothing registered.
	ReasonNoSamples Reason = "NO_SAMPLES"

	// ReasonUnexpectedTile indicates a sample changed bits outside the
	// candidate tile set.
	ReasonUnexpectedTile Reason = "UNEXPECTED_TILE"

	// ReasonAmbiguous indicates two sources produced the same non-empty
	// encoding in one tile.
	ReasonAmbiguous Reason = "AMBIGUOUS"

	// ReasonUnderdetermined indicates more than one source left every bit at
	// baseline where only one zero selector can exist.
	ReasonUnderdetermined Reason = "UNDERDETERMINED"

	// ReasonAlreadySolved indicates use of a context after Solve.
	ReasonAlreadySolved Reason = "ALREADY_SOLVED"
)

// InconsistencyError reports a sink whose samples do not determine a bit
// mapping.
type InconsistencyError struct {
	Reason  Reason
	Sink    string
	Source  string // Offending source, when one is
	Tile    string // Offending tile, when one is
	Message string
}

func (e *InconsistencyError) Error() string {
	msg := fmt.Sprintf("%s: sink %s: %s", e.Reason, e.Sink, e.Message)
	if e.Source != "" {
		msg += fmt.Sprintf(" (source=%s)", e.Source)
	}
	if e.Tile != "" {
		msg += fmt.Sprintf(" (tile=%s)", e.Tile)
	}
	return msg
}

// IsReason reports whether err is an InconsistencyError with reason r.
func IsReason(err error, r Reason) bool {
	var ie *InconsistencyError
	if errors.As(err, &ie) {
		return ie.Reason == r
	}
	return false
}
