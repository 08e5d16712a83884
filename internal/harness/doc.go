// Package harness runs fuzz scenarios against recording fakes of the
// catalog, build oracle and solver.
//
// A scenario declares a small node catalog, the run options and the
// failures to inject, then asserts on what the fuzzer did. No toolchain
// runs: the fakes record every build and every solver call.
//
// # Scenario Format
//
//	name: two_nodes
//	description: "Each node task fuzzes its own sinks"
//	nodes:
//	  - name: R1C1_A0
//	    uphill:
//	      - {from: R1C1_W0, to: R1C1_A0}
//	run:
//	  patterns: [R1C1_A0]
//	  tiles: ["R1C1:PLC2"]
//	  tokens: [n1]
//	fail_builds: [R1C1_W0]
//	assertions:
//	  - type: sink_group
//	    sink: R1C1_A0
//	    sources: [R1C1_W0]
//	  - type: error
//	    code: BUILD_FAILED
//	    sink: R1C1_A0
//
// # Assertion Types
//
//   - sink_group: the sink was attempted with exactly these sources, in order
//   - context_count: the solver opened exactly count contexts for the sink
//   - sample_order: the sink's samples were registered in this order, all
//     before its solve
//   - no_context: the solver never opened a context for the sink
//   - ignored_tiles: every opened context carried exactly these ignored tiles
//   - error: the run failed with code (optionally at node and sink), or
//     succeeded when code is "none"
//
// # Deterministic Testing
//
// Tokens are issued in resolved-node order and the trace is built from the
// run report, not from call order, so concurrent node tasks still produce
// identical traces for golden comparison.
package harness
