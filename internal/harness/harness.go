package harness

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/roach88/proofcheck/internal/capture"
	"github.com/roach88/proofcheck/internal/config"
	"github.com/roach88/proofcheck/internal/ledger"
	"github.com/roach88/proofcheck/internal/proof"
	"github.com/roach88/proofcheck/internal/store"
	"github.com/roach88/proofcheck/internal/testutil"
	"github.com/roach88/proofcheck/internal/verify"
)

// Harness is the scenario execution engine.
// It runs the real verifier against a fixed clock and a fresh ledger.
type Harness struct {
	ledger   *ledger.Ledger
	verifier *verify.Verifier
	clock    *testutil.FixedClock
	photos   map[string]fixture

	attempts  int
	watermark string // text the OCR engine reads for the current step
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Build the photos
// 2. Wire the verifier from the scenario's settings
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the trace and the ledger
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	now, err := time.Parse(time.RFC3339, scenario.Now)
	if err != nil {
		return nil, fmt.Errorf("invalid now: %w", err)
	}

	photos, err := buildFixtures(scenario.Photos)
	if err != nil {
		return nil, fmt.Errorf("failed to build photos: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cfg := scenarioConfig(scenario)

	h := &Harness{
		clock:  testutil.NewFixedClock(now),
		photos: photos,
	}
	h.ledger = ledger.New(st,
		ledger.WithNamespace(cfg.Ledger.Namespace),
		ledger.WithMaxRecords(cfg.Ledger.MaxRecords),
	)
	h.verifier, err = verify.FromConfig(cfg, h.newRecognizer,
		verify.WithClock(h.clock),
		verify.WithAttemptIDs(h.nextAttempt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build verifier: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute flow: %w", err)
		}
	}

	actx := &AssertionContext{
		Ctx:    ctx,
		Ledger: h.ledger,
		Photos: photos,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func scenarioConfig(s *Scenario) config.Config {
	cfg := config.Default()
	cfg.Timezone = s.Timezone
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if s.SkewTolerance != nil {
		cfg.SkewTolerance = *s.SkewTolerance
	}
	if s.MaxRecords > 0 {
		cfg.Ledger.MaxRecords = s.MaxRecords
	}
	return cfg
}

func (h *Harness) nextAttempt() string {
	h.attempts++
	return "attempt-" + strconv.Itoa(h.attempts)
}

func (h *Harness) newRecognizer() (capture.TextRecognizer, error) {
	return scriptedRecognizer{text: h.watermark}, nil
}

// scriptedRecognizer reads the current photo's declared watermark.
type scriptedRecognizer struct{ text string }

func (r scriptedRecognizer) Recognize(context.Context, image.Image) (string, error) {
	return r.text, nil
}

func (scriptedRecognizer) Close() error { return nil }

// executeStep verifies one photo, commits it when asked, and checks the
// step's expect clause.
func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) error {
	if step.Advance > 0 {
		h.clock.Advance(step.Advance)
	}

	photo, ok := h.photos[step.Verify]
	if !ok {
		return fmt.Errorf("flow[%d]: unknown photo %q", index, step.Verify)
	}
	h.watermark = photo.watermark

	res, err := h.verifier.Verify(ctx, photo.file, h.ledger.Lookup(ctx, step.User))
	if err != nil {
		return fmt.Errorf("flow[%d]: %w", index, err)
	}

	event := TraceEvent{
		Step:    index + 1,
		Attempt: res.AttemptID,
		At:      h.clock.Now().Format(time.RFC3339),
		Photo:   step.Verify,
		User:    step.User,
	}

	if !res.Accepted() {
		event.Verdict = string(res.Rejection.Reason)
	} else {
		event.Verdict = VerdictAccepted
		event.Source = string(res.Payload.Source)
		event.Detail = res.Payload.Detail
		event.CapturedAt = res.Payload.CapturedAt.Format(time.RFC3339)

		if step.Commit {
			added, err := h.ledger.Append(ctx, step.User, proof.UsedProofRecord{
				Hash:       res.Payload.Hash,
				UsedAt:     h.clock.Now(),
				CapturedAt: res.Payload.CapturedAt,
				Context:    step.Context,
			})
			if err != nil {
				return fmt.Errorf("flow[%d]: commit: %w", index, err)
			}
			event.Committed = added
		}
	}

	result.AddTrace(event)

	if step.Expect != nil {
		for _, msg := range checkExpect(index, step.Expect, event) {
			result.AddError(msg)
		}
	}
	return nil
}

// checkExpect compares a step outcome against its expect clause.
func checkExpect(index int, expect *ExpectClause, event TraceEvent) []string {
	var errs []string

	if event.Verdict != expect.Verdict {
		errs = append(errs, fmt.Sprintf("flow[%d] (%s): expected verdict %q, got %q",
			index, event.Photo, expect.Verdict, event.Verdict))
		return errs
	}

	if expect.Source != "" && event.Source != expect.Source {
		errs = append(errs, fmt.Sprintf("flow[%d] (%s): expected source %q, got %q",
			index, event.Photo, expect.Source, event.Source))
	}

	if expect.CapturedAt != "" {
		want, _ := time.Parse(time.RFC3339, expect.CapturedAt)
		got, err := time.Parse(time.RFC3339, event.CapturedAt)
		if err != nil || !got.Equal(want) {
			errs = append(errs, fmt.Sprintf("flow[%d] (%s): expected captured_at %s, got %q",
				index, event.Photo, expect.CapturedAt, event.CapturedAt))
		}
	}

	return errs
}
