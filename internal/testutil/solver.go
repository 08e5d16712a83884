package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/pipfuzz/internal/ir"
	"github.com/roach88/pipfuzz/internal/oracle"
	"github.com/roach88/pipfuzz/internal/store"
)

// ErrInjectedSolve is returned by FakeContext.Solve for sinks marked to fail.
var ErrInjectedSolve = errors.New("injected solver inconsistency")

// Sample records one AddSample call.
type Sample struct {
	Source string
	Image  ir.Image
	Seq    int64
}

// FakeContext records the samples registered for one sink.
type FakeContext struct {
	Request oracle.ContextRequest
	Seq     int64 // Open stamp

	clock   *EventClock
	failErr error

	mu        sync.Mutex
	samples   []Sample
	solves    []int64
	dbHandles []*store.Store
}

// AddSample implements oracle.FuzzContext.
func (c *FakeContext) AddSample(_ context.Context, db *store.Store, source string, img ir.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.solves) > 0 {
		return fmt.Errorf("sink %s: sample after solve", c.Request.Sink)
	}
	c.samples = append(c.samples, Sample{Source: source, Image: img, Seq: c.clock.Tick()})
	c.dbHandles = append(c.dbHandles, db)
	return nil
}

// Solve implements oracle.FuzzContext.
func (c *FakeContext) Solve(_ context.Context, db *store.Store) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.solves = append(c.solves, c.clock.Tick())
	c.dbHandles = append(c.dbHandles, db)
	if c.failErr != nil {
		return fmt.Errorf("sink %s: %w", c.Request.Sink, c.failErr)
	}
	return nil
}

// Samples returns a copy of the registered samples in order.
func (c *FakeContext) Samples() []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sample(nil), c.samples...)
}

// Sources returns the registered source wires in order.
func (c *FakeContext) Sources() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.samples))
	for i, s := range c.samples {
		out[i] = s.Source
	}
	return out
}

// Solves returns the stamps of every Solve call.
func (c *FakeContext) Solves() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.solves...)
}

// Databases returns the database handle passed to every call.
func (c *FakeContext) Databases() []*store.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*store.Store(nil), c.dbHandles...)
}

// FakeSolver is an oracle.Solver that records the contexts it opens.
type FakeSolver struct {
	clock *EventClock

	mu        sync.Mutex
	contexts  []*FakeContext
	failSolve map[string]bool // by sink
	failOpen  map[string]bool // by sink
}

// NewFakeSolver creates a solver stamping calls with clock. A nil clock gets
// a private one.
func NewFakeSolver(clock *EventClock) *FakeSolver {
	if clock == nil {
		clock = &EventClock{}
	}
	return &FakeSolver{
		clock:     clock,
		failSolve: make(map[string]bool),
		failOpen:  make(map[string]bool),
	}
}

// FailSolve makes Solve fail for sink.
func (s *FakeSolver) FailSolve(sink string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSolve[sink] = true
}

// FailOpen makes OpenContext fail for sink.
func (s *FakeSolver) FailOpen(sink string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOpen[sink] = true
}

// OpenContext implements oracle.Solver.
func (s *FakeSolver) OpenContext(_ context.Context, _ *store.Store, req oracle.ContextRequest) (oracle.FuzzContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOpen[req.Sink] {
		return nil, fmt.Errorf("open context for %s: %w", req.Sink, ErrInjectedSolve)
	}
	c := &FakeContext{
		Request: req,
		Seq:     s.clock.Tick(),
		clock:   s.clock,
	}
	if s.failSolve[req.Sink] {
		c.failErr = ErrInjectedSolve
	}
	s.contexts = append(s.contexts, c)
	return c, nil
}

// Contexts returns every opened context in open order.
func (s *FakeSolver) Contexts() []*FakeContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakeContext(nil), s.contexts...)
}

// ContextsFor returns the contexts opened for sink, in open order.
func (s *FakeSolver) ContextsFor(sink string) []*FakeContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*FakeContext
	for _, c := range s.contexts {
		if c.Request.Sink == sink {
			out = append(out, c)
		}
	}
	return out
}
