// Package harness runs sanitizer conformance scenarios.
//
// A scenario loads a schema into a fresh registry, stores setup records in an
// in-memory database, runs helper operations against inline inputs and
// checks TypeInfo predicates. Every step's output lands in a trace that is
// compared against a golden file.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: |
//	  type: person: {
//	  	collection: "people"
//	  	fields: {
//	  		id:     string
//	  		apiKey: string @visibility(user=concealed)
//	  	}
//	  }
//	setup:
//	  - type: person
//	    record: {id: p1, apiKey: k1}
//	steps:
//	  - op: conceal
//	    type: person
//	    user_class: user
//	    input: {id: p1, apiKey: k1}
//	    expect: {id: p1, apiKey: true}
//	  - op: list
//	    type: person
//	    expect: [{id: p1, apiKey: true}]
//	checks:
//	  - type: person
//	    property: apiKey
//	    concealed: true
//
// schema_dir may replace schema; it names a directory of CUE files relative
// to the scenario file.
//
// # Operations
//
//   - omitNull, omitHidden, omitReadOnly, conceal, reduceComplex: the
//     helper operation of the same name
//   - preProcess: the transport pipeline (omit nulls, omit hidden, conceal)
//   - list: preProcess over every stored record of the type
//
// A step asserts its output with expect (or expect_null), its error code with
// expect_error and the state of its input afterwards with expect_input.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/conceal_and_hide.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
