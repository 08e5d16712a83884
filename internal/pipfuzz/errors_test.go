package pipfuzz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuzzError_Error(t *testing.T) {
	cause := errors.New("toolchain exited 1")
	tests := []struct {
		name string
		err  *FuzzError
		want string
	}{
		{
			"config",
			configError("no tiles given"),
			"CONFIGURATION: no tiles given",
		},
		{
			"node and sink",
			&FuzzError{Code: ErrCodeSolverFailed, Message: "solve", Node: "N1", Sink: "w1"},
			"SOLVER_FAILED: solve (node=N1, sink=w1)",
		},
		{
			"full location with cause",
			&FuzzError{Code: ErrCodeBuildFailed, Message: "build variant", Node: "N1", Sink: "w1", Source: "w0", Err: cause},
			"BUILD_FAILED: build variant (node=N1, sink=w1, source=w0): toolchain exited 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorHelpers_SeeThroughWrapping(t *testing.T) {
	cause := errors.New("boom")
	build := &FuzzError{Code: ErrCodeBuildFailed, Err: cause}
	solve := &FuzzError{Code: ErrCodeSolverFailed}

	joined := errors.Join(fmt.Errorf("node: %w", build), solve)
	assert.True(t, IsBuildError(joined))
	assert.True(t, IsSolverError(solve))
	assert.False(t, IsConfigurationError(joined))
	assert.True(t, errors.Is(build, cause))

	assert.False(t, IsBuildError(cause))
	assert.False(t, IsSolverError(nil))
}

func TestSinkState_Terminal(t *testing.T) {
	assert.True(t, SinkSolved.Terminal())
	assert.True(t, SinkFailed.Terminal())
	assert.False(t, SinkInit.Terminal())
	assert.False(t, SinkCollecting.Terminal())
	assert.False(t, SinkSolving.Terminal())
}

func TestDirective(t *testing.T) {
	assert.Equal(t, `sink="w1", source="w0"`, Directive("w1", "w0"))
}

func TestOptionsValidate(t *testing.T) {
	base := Options{Patterns: []string{"N1"}, Tiles: []string{"T1"}, Template: "design.v"}
	assert.NoError(t, base.validate())

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"no patterns", func(o *Options) { o.Patterns = nil }},
		{"empty pattern", func(o *Options) { o.Patterns = []string{"N1", ""} }},
		{"bad regex", func(o *Options) { o.Regex = true; o.Patterns = []string{"N[1"} }},
		{"no tiles", func(o *Options) { o.Tiles = nil }},
		{"no template", func(o *Options) { o.Template = "" }},
		{"negative parallelism", func(o *Options) { o.Parallelism = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			tt.mutate(&o)
			assert.True(t, IsConfigurationError(o.validate()))
		})
	}
}
