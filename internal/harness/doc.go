// Package harness runs conformance scenarios against the expression engine.
//
// A scenario builds a fixture directory, registers definitions, then runs a
// sequence of steps through a Session and checks what each step produced.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	files:
//	  data/fruit.csv: |
//	    name,qty
//	    apple,3
//	bundles:
//	  - defs.cue
//	setup:
//	  - def-ty Point { x:Num y:Num }
//	steps:
//	  - eval: open fruit.csv | len
//	    wd: data
//	    expect:
//	      type: Num
//	      value: 1
//	  - eval: open missing.csv
//	    expect:
//	      error: E301
//	      underlines: ["open missing.csv", "missing.csv"]
//	  - write: {path: data/fruit.csv, content: "name,qty\n"}
//	  - define: def total => len
//	assertions:
//	  - type: trace_count
//	    outcome: error
//	    count: 1
//	  - type: final_state
//	    table: history
//	    expect: {count: 2, failed: 1}
//
// Bundle paths are relative to the scenario file. Setup definitions must
// succeed. A step without an expect clause must succeed.
//
// # Assertion Types
//
//   - trace_contains: a step with the given source (and outcome) ran
//   - trace_order: steps with the given sources ran in this order
//   - trace_count: exactly N steps of the given kind and outcome ran
//   - final_state: the history, definitions or cache hold expected values
//
// # Deterministic Testing
//
// Every run gets a fresh fixture root, an in-memory SQLite store with
// sequential history ids (eval-1, eval-2, ...) and a fresh content cache.
// Write steps invalidate the cache synchronously instead of waiting for the
// watcher, so a read after a write always sees the new content. Cache
// counters can still move when the watcher catches up later, so
// final_state on the cache belongs in scenarios without writes.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/fruit.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
