package pipfuzz

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes fuzz errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates empty or malformed run options. Raised
	// before any node task launches.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeBuildFailed indicates the build oracle could not produce a
	// requested variant. Aborts the enclosing node task.
	ErrCodeBuildFailed ErrorCode = "BUILD_FAILED"

	// ErrCodeSolverFailed indicates the solver rejected a sink's samples.
	// Aborts the enclosing node task; sinks already solved stay committed.
	ErrCodeSolverFailed ErrorCode = "SOLVER_FAILED"
)

// FuzzError represents an error raised while fuzzing.
type FuzzError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Node, Sink and Source locate the failure when known.
	Node   string
	Sink   string
	Source string

	// Err is the underlying collaborator error.
	Err error
}

// Error implements the error interface.
func (e *FuzzError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Node != "" && e.Source != "":
		msg += fmt.Sprintf(" (node=%s, sink=%s, source=%s)", e.Node, e.Sink, e.Source)
	case e.Node != "" && e.Sink != "":
		msg += fmt.Sprintf(" (node=%s, sink=%s)", e.Node, e.Sink)
	case e.Node != "":
		msg += fmt.Sprintf(" (node=%s)", e.Node)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *FuzzError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var fe *FuzzError
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsConfigurationError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped and joined errors.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsBuildError returns true if the error is a build failure.
func IsBuildError(err error) bool {
	return hasCode(err, ErrCodeBuildFailed)
}

// IsSolverError returns true if the error is a solver failure.
func IsSolverError(err error) bool {
	return hasCode(err, ErrCodeSolverFailed)
}

func configError(format string, args ...any) *FuzzError {
	return &FuzzError{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...)}
}
