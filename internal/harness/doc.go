// Package harness runs conformance scenarios for lazytbl.
//
// A scenario seeds the local sandbox server with tables and transform
// functions, builds a plan on it and checks the outcome: the lowered SQL,
// the rows the sandbox returns, or the error code a failing plan raises.
//
// # Scenario Format
//
//	name: top_regions
//	description: "Summarise then order by an aggregate"
//	transforms: [normalize]
//	tables:
//	  - name: sales
//	    columns: [region, amount]
//	    rows:
//	      - [north, 10]
//	      - [south, 150]
//	plan:
//	  from: sales
//	  steps:
//	    - group_by: [region]
//	    - summarise: ["total = sum(amount)"]
//	expect:
//	  columns: [region, total]
//	  rows:
//	    - [north, 10]
//	    - [south, 150]
//
// expect.error names a lazyerr code instead of rows. Rows compare in order
// unless expect.unordered is set.
//
// # Golden SQL
//
// RunWithGolden additionally compares the lowered SQL with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// Every scenario runs in a fresh in-memory sandbox.
package harness
