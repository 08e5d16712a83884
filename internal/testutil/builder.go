package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/oracle"
)

// ErrInjectedBuild is returned by FakeBuilder for sources marked to fail.
var ErrInjectedBuild = errors.New("injected build failure")

// BuildCall records one Build request.
type BuildCall struct {
	Template  string
	Directive string
	Prefix    string
	Seq       int64
}

// FakeBuilder is an oracle.Builder that records requests and returns
// synthetic images without running a toolchain.
//
// It also tracks how many builds are in flight per artifact prefix. Two
// overlapping builds with the same prefix would overwrite each other's
// artifacts in a real build directory; those are counted as collisions.
type FakeBuilder struct {
	clock *EventClock

	mu         sync.Mutex
	calls      []BuildCall
	failing    map[string]bool // by source wire
	failAll    bool
	live       map[string]int // prefix -> builds in flight
	inFlight   int
	maxFlight  int
	collisions int

	rendezvous int
	arrived    int
	release    chan struct{}
}

// NewFakeBuilder creates a builder stamping calls with clock. A nil clock
// gets a private one.
func NewFakeBuilder(clock *EventClock) *FakeBuilder {
	if clock == nil {
		clock = &EventClock{}
	}
	return &FakeBuilder{
		clock:   clock,
		failing: make(map[string]bool),
		live:    make(map[string]int),
	}
}

// FailSource makes every variant forcing an arc from source fail.
func (b *FakeBuilder) FailSource(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[source] = true
}

// FailAll makes every build fail, baseline included.
func (b *FakeBuilder) FailAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAll = true
}

// SetRendezvous makes the first n variant builds wait until all n have
// started. With n node tasks running at once this proves they overlap.
func (b *FakeBuilder) SetRendezvous(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rendezvous = n
	b.arrived = 0
	b.release = make(chan struct{})
}

// Build implements oracle.Builder.
func (b *FakeBuilder) Build(ctx context.Context, template string, subst map[string]string, prefix string) (ir.Image, error) {
	directive := subst[oracle.DirectiveKey]

	b.mu.Lock()
	b.calls = append(b.calls, BuildCall{
		Template:  template,
		Directive: directive,
		Prefix:    prefix,
		Seq:       b.clock.Tick(),
	})
	if b.live[prefix] > 0 {
		b.collisions++
	}
	b.live[prefix]++
	b.inFlight++
	if b.inFlight > b.maxFlight {
		b.maxFlight = b.inFlight
	}
	var wait chan struct{}
	if directive != "" && b.arrived < b.rendezvous {
		b.arrived++
		wait = b.release
		if b.arrived == b.rendezvous {
			close(b.release)
		}
	}
	fail := b.failAll || b.failing[sourceOf(directive)]
	b.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
		}
	}

	b.mu.Lock()
	b.live[prefix]--
	b.inFlight--
	b.mu.Unlock()

	if fail {
		return ir.Image{}, fmt.Errorf("%s: %w", prefix+"design.v", ErrInjectedBuild)
	}
	name := prefix + "design.bits"
	return ir.Image{
		ID:   ir.ImageID([]byte(template + "\x00" + directive)),
		Name: name,
		Path: name,
	}, nil
}

// Calls returns a copy of every recorded request in call order.
func (b *FakeBuilder) Calls() []BuildCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BuildCall(nil), b.calls...)
}

// Prefixes returns the distinct prefixes used, with their build counts.
func (b *FakeBuilder) Prefixes() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int)
	for _, c := range b.calls {
		out[c.Prefix]++
	}
	return out
}

// MaxInFlight returns the peak number of concurrent builds.
func (b *FakeBuilder) MaxInFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxFlight
}

// Collisions returns how many builds started while another build with the
// same prefix was in flight.
func (b *FakeBuilder) Collisions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.collisions
}

// sourceOf extracts the source wire from an arc directive.
func sourceOf(directive string) string {
	const key = `source="`
	i := strings.Index(directive, key)
	if i < 0 {
		return ""
	}
	rest := directive[i+len(key):]
	if j := strings.IndexByte(rest, '"'); j >= 0 {
		return rest[:j]
	}
	return ""
}
