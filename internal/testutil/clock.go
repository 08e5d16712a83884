// Package testutil provides recording fakes of the fuzzer's collaborators
// for tests and the scenario harness.
package testutil

import "sync"

// EventClock stamps fake collaborator calls with a global order.
//
// Calls from concurrently running node tasks interleave arbitrarily, but
// within one task the stamps prove ordering, e.g. that every sample of a
// sink was registered before its solve.
//
// Thread-safety: all methods are safe for concurrent use.
type EventClock struct {
	mu  sync.Mutex
	seq int64
}

// Tick advances the clock and returns the new stamp. The first stamp is 1.
func (c *EventClock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Now returns the last stamp issued.
func (c *EventClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
