package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	files, err := FindScenarios("testdata", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result := RunWithGolden(t, scenario)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestGoldenPathMatchesScenarioName(t *testing.T) {
	files, err := FindScenarios("testdata", "")
	require.NoError(t, err)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("testdata", "golden", scenario.Name+".golden"), GoldenPath(file))
	}
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectation",
		Description: "A stale photo expected to pass",
		Now:         "2026-03-14T18:00:00Z",
		Photos: map[string]Photo{
			"old": {ExifOriginal: "2026:03:10 09:00:00"},
		},
		Flow: []FlowStep{
			{Verify: "old", Expect: &ExpectClause{Verdict: VerdictAccepted}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected verdict "accepted", got "not_today"`)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "not_today", result.Trace[0].Verdict)
}

func TestRun_SourceAndCaptureMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_source",
		Description: "Metadata wins over the watermark",
		Now:         "2026-03-14T18:00:00Z",
		Photos: map[string]Photo{
			"both": {ExifOriginal: "2026:03:14 09:00:00", Watermark: "2026-03-14 10:00"},
		},
		Flow: []FlowStep{
			{Verify: "both", Expect: &ExpectClause{
				Verdict:    VerdictAccepted,
				Source:     "ocr",
				CapturedAt: "2026-03-14T10:00:00Z",
			}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `expected source "ocr", got "metadata"`)
	assert.Contains(t, result.Errors[1], "expected captured_at 2026-03-14T10:00:00Z")
}

func TestRun_CommitOnlyAccepted(t *testing.T) {
	scenario := &Scenario{
		Name:        "commit_rejected",
		Description: "Rejected photos are never written to the ledger",
		Now:         "2026-03-14T18:00:00Z",
		Photos: map[string]Photo{
			"future": {ExifOriginal: "2026:03:14 18:30:00"},
		},
		Flow: []FlowStep{
			{Verify: "future", User: "alice", Commit: true},
		},
		Assertions: []Assertion{
			{Type: AssertLedgerCount, User: "alice", Count: 0},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "future_dated", result.Trace[0].Verdict)
	assert.False(t, result.Trace[0].Committed)
}

func TestRun_SkewToleranceOverride(t *testing.T) {
	zero := 0 * time.Minute
	scenario := &Scenario{
		Name:          "no_skew",
		Description:   "Without tolerance a capture one second ahead is future dated",
		Now:           "2026-03-14T18:00:00Z",
		SkewTolerance: &zero,
		Photos: map[string]Photo{
			"ahead": {ExifOriginal: "2026:03:14 18:00:01"},
		},
		Flow: []FlowStep{
			{Verify: "ahead", Expect: &ExpectClause{Verdict: "future_dated"}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_AssertionFailuresReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_assertions",
		Description: "Assertions that do not hold",
		Now:         "2026-03-14T18:00:00Z",
		Photos: map[string]Photo{
			"run": {ExifOriginal: "2026:03:14 09:00:00"},
		},
		Flow: []FlowStep{
			{Verify: "run", User: "alice"},
		},
		Assertions: []Assertion{
			{Type: AssertLedgerCount, User: "alice", Count: 1},
			{Type: AssertLedgerContains, User: "alice", Photo: "run"},
			{Type: AssertVerdictCount, Verdict: VerdictAccepted, Count: 2},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: ledger_count")
	assert.Contains(t, result.Errors[1], "Assertion failed: ledger_contains")
	assert.Contains(t, result.Errors[2], "Assertion failed: verdict_count")
}
