// Package pipfuzz implements the interconnect pip fuzzer.
//
// Given node name patterns, the fuzzer resolves nodes through the catalog,
// discovers the arcs driving (and optionally driven by) each node, filters
// them by wire name and by arc, and groups the survivors by sink. Each node
// runs as its own task; tasks run concurrently and Run joins on all of them.
//
// Within a node task sinks are fuzzed sequentially in sorted order. For each
// sink a solver context is opened, one design variant is built per candidate
// source with a directive forcing exactly that arc, every variant is
// registered as a sample, and the context is solved:
//
//	INIT -> COLLECTING -> SOLVING -> SOLVED
//	   \         \            \
//	    +---------+------------+--> FAILED
//
// Every node task holds a unique namespace token issued before launch. All
// build artifacts the task produces are prefixed with it, so concurrent
// tasks sharing a build directory never collide.
//
// Failures are aggregated: every node task runs to completion and Run returns
// the per-node errors joined in resolved-node order, alongside a Report.
package pipfuzz
