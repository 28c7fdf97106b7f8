package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/proofcheck/internal/ledger"
)

// AssertionContext carries what ledger assertions need to inspect.
type AssertionContext struct {
	Ctx    context.Context
	Ledger *ledger.Ledger
	Photos map[string]fixture
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s by %q -> %s\n", event.Step, event.Photo, event.User, event.Verdict)
		}
	}

	return buf.String()
}

// ledgerPhotos maps the user's ledger, newest first, back to photo names.
// Hashes that match no declared photo are reported by prefix.
func ledgerPhotos(actx *AssertionContext, user string) ([]string, error) {
	records, err := actx.Ledger.Records(actx.Ctx, user)
	if err != nil {
		return nil, err
	}

	byHash := make(map[string]string, len(actx.Photos))
	for name, f := range actx.Photos {
		if f.hash == "" {
			continue
		}
		// Copies share a hash; keep the lexically first name.
		if prev, ok := byHash[f.hash]; !ok || name < prev {
			byHash[f.hash] = name
		}
	}

	names := make([]string, 0, len(records))
	for _, r := range records {
		if name, ok := byHash[r.Hash]; ok {
			names = append(names, name)
			continue
		}
		names = append(names, "unknown:"+r.Hash[:min(len(r.Hash), 12)])
	}
	return names, nil
}

// assertLedgerCount checks the number of records in a user's ledger.
func assertLedgerCount(actx *AssertionContext, assertion Assertion) error {
	records, err := actx.Ledger.Records(actx.Ctx, assertion.User)
	if err != nil {
		return fmt.Errorf("ledger_count: %w", err)
	}
	if len(records) != assertion.Count {
		return &AssertionError{
			Type:     AssertLedgerCount,
			Expected: fmt.Sprintf("%d record(s) in %s", assertion.Count, actx.Ledger.Key(assertion.User)),
			Actual:   fmt.Sprintf("%d record(s)", len(records)),
		}
	}
	return nil
}

// assertLedgerContains checks that a photo's hash is recorded for a user.
func assertLedgerContains(actx *AssertionContext, assertion Assertion, trace []TraceEvent) error {
	f := actx.Photos[assertion.Photo]
	used, err := actx.Ledger.Contains(actx.Ctx, assertion.User, f.hash)
	if err != nil {
		return fmt.Errorf("ledger_contains: %w", err)
	}
	if !used {
		return &AssertionError{
			Type:     AssertLedgerContains,
			Expected: fmt.Sprintf("photo %s recorded in %s", assertion.Photo, actx.Ledger.Key(assertion.User)),
			Actual:   "not recorded",
			Trace:    trace,
		}
	}
	return nil
}

// assertLedgerOrder checks the exact newest-first content of a user's ledger.
func assertLedgerOrder(actx *AssertionContext, assertion Assertion, trace []TraceEvent) error {
	got, err := ledgerPhotos(actx, assertion.User)
	if err != nil {
		return fmt.Errorf("ledger_order: %w", err)
	}

	want := assertion.Photos
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertLedgerOrder,
			Expected: fmt.Sprintf("ledger %v", want),
			Actual:   fmt.Sprintf("ledger %v", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertVerdictCount checks how many steps ended with a verdict.
func assertVerdictCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Verdict == assertion.Verdict {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertVerdictCount,
			Expected: fmt.Sprintf("%d step(s) with verdict %s", assertion.Count, assertion.Verdict),
			Actual:   fmt.Sprintf("%d step(s)", count),
			Trace:    trace,
		}
	}
	return nil
}

// EvaluateAssertions runs all assertions and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertVerdictCount:
			err = assertVerdictCount(result.Trace, assertion)
		case AssertLedgerCount, AssertLedgerContains, AssertLedgerOrder:
			if actx == nil || actx.Ledger == nil {
				err = fmt.Errorf("assertion[%d]: %s requires ledger context", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertLedgerCount:
				err = assertLedgerCount(actx, assertion)
			case AssertLedgerContains:
				err = assertLedgerContains(actx, assertion, result.Trace)
			default:
				err = assertLedgerOrder(actx, assertion, result.Trace)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
