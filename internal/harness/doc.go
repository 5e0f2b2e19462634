// Package harness runs store conformance scenarios.
//
// A scenario is a YAML file listing object operations against a fresh
// store and assertions on the state they leave behind. Every run is
// deterministic: the store file is new, ids start at 1 and each traced step
// gets the next number of a logical clock, so traces can be compared with
// golden files.
//
// # Scenario Format
//
//	name: refcount_arithmetic
//	description: "keep and waste adjust the refcount by one"
//	driver: sqlite            # optional: sqlite3 (default) or sqlite
//	setup:
//	  - op: create
//	    name: r
//	    type: Rectangle
//	    args: { x: 101, y: 102, width: 103, height: 104 }
//	flow:
//	  - op: keep
//	    target: r
//	  - op: transaction
//	    outcome: error          # commit (default), error or cancel
//	    steps:
//	      - op: create
//	        name: tmp
//	        type: Circle
//	        args: { x: 0, y: 0, radius: 1 }
//	      - op: transaction
//	        expect: { error: nested_transaction }
//	assertions:
//	  - type: refcount
//	    target: r
//	    count: 2
//	  - type: field
//	    target: r
//	    field: origin.x
//	    value: 101
//
// # Operations
//
//   - create: insert a Rectangle, Oval, Circle, Layer, Contents or Dictionary
//   - save, move, delete, forget: act on a named object
//   - keep, waste: adjust refcounts; several targets change atomically
//   - load: instantiate the target's id and bind the instance to a new name
//   - instantiate: instantiate every live object of a type
//   - reopen: close the store and open the same file again
//   - transaction: run nested steps, then commit, roll back or cancel
//
// # Assertion Types
//
//   - count: live objects of a type
//   - rows: raw rows of a type, whatever their refcount
//   - refcount: stored refcount of a named object
//   - cached, bound: identity cache membership and store binding
//   - same: two names refer to the same instance
//   - field: a value in the object's archived fields
//   - trace_order, trace_count: ops in the trace
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/refcount.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
