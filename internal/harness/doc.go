// Package harness runs verification scenarios described in YAML.
//
// A scenario fixes the wall clock, declares synthetic photos, and walks a
// flow of verify steps against the real verification pipeline and a fresh
// in-memory ledger. Each step records a trace event; expect clauses and
// assertions are checked against the trace and the final ledger.
//
// # Scenario Format
//
//	name: replay_rejected
//	description: "A committed photo cannot be used twice"
//	now: "2026-03-14T18:00:00Z"
//	timezone: UTC
//	photos:
//	  run:
//	    exif_original: "2026:03:14 09:30:00"
//	  run_copy:
//	    same_as: run
//	  stamped:
//	    watermark: "2026-03-14 08:15"
//	flow:
//	  - verify: run
//	    user: alice
//	    commit: true
//	    expect:
//	      verdict: accepted
//	      source: metadata
//	  - verify: run_copy
//	    user: alice
//	    expect:
//	      verdict: already_used
//	assertions:
//	  - type: ledger_count
//	    user: alice
//	    count: 1
//
// # Photos
//
// Every photo is a small JPEG with distinct bytes. exif_* fields are
// written verbatim into the EXIF block. watermark is the text the OCR
// engine reads in every region of that photo. same_as makes a
// byte-identical copy of another photo; missing makes a file that cannot
// be opened.
//
// # Assertion Types
//
//   - ledger_count: the user's ledger holds exactly count records
//   - ledger_contains: the user's ledger holds the photo's hash
//   - ledger_order: the user's ledger lists exactly these photos, newest first
//   - verdict_count: exactly count steps ended with verdict
//
// # Deterministic Testing
//
// The clock only moves when a step says advance, and attempt IDs are
// numbered per scenario, so traces are stable for golden comparison.
package harness
