// Package verify is the single entry point for proof-of-completion checks.
//
// Verify runs strictly in order, cheapest first:
//
//  1. hash the file bytes (unreadable input is rejected)
//  2. consult the caller's used-hash predicate (replays are rejected before
//     any extraction work)
//  3. resolve the capture time (metadata, then OCR)
//  4. apply the temporal admission policy
//
// An accepted Result carries the payload the caller needs to commit the
// hash to its ledger. Verify never writes to a ledger itself.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/proofcheck/internal/admission"
	"github.com/roach88/proofcheck/internal/hashing"
	"github.com/roach88/proofcheck/internal/proof"
)

// TimeResolver finds when a file was captured. The error is reserved for
// context cancellation.
type TimeResolver interface {
	Resolve(ctx context.Context, f proof.File) (proof.CaptureTime, bool, error)
}

// HashFunc fingerprints a file.
type HashFunc func(ctx context.Context, f proof.File) (string, error)

// Rejection wording.
const (
	MessageUnreadable    = "Could not read this image."
	GuidanceUnreadable   = "Please try another file."
	MessageAlreadyUsed   = "This photo was already used to verify another task."
	GuidanceAlreadyUsed  = "Please upload a new one."
	MessageNoCaptureTime = "Could not find a valid capture date/time."
)

// Verifier orchestrates a verification.
type Verifier struct {
	hash      HashFunc
	resolver  TimeResolver
	policy    *admission.Policy
	clock     admission.Clock
	attemptID func() string
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock sets the source of "now".
func WithClock(c admission.Clock) Option {
	return func(v *Verifier) { v.clock = c }
}

// WithHashFunc replaces the content hash.
func WithHashFunc(h HashFunc) Option {
	return func(v *Verifier) { v.hash = h }
}

// WithAttemptIDs replaces the attempt ID generator.
func WithAttemptIDs(gen func() string) Option {
	return func(v *Verifier) { v.attemptID = gen }
}

// New creates a Verifier.
func New(resolver TimeResolver, policy *admission.Policy, opts ...Option) *Verifier {
	v := &Verifier{
		hash:      hashing.SumFile,
		resolver:  resolver,
		policy:    policy,
		clock:     admission.SystemClock{},
		attemptID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks f. isHashUsed may be nil when the caller has no ledger.
//
// Rejections are returned inside the Result with a nil error. An error is
// returned only for a nil file (proof.ErrNoInput) or when ctx ends.
func (v *Verifier) Verify(ctx context.Context, f proof.File, isHashUsed func(hash string) bool) (proof.Result, error) {
	if isNilFile(f) {
		return proof.Result{}, proof.ErrNoInput
	}
	attempt := v.attemptID()
	log := slog.With("attempt", attempt, "file", f.Name())
	started := time.Now()

	done := func(r proof.Result) (proof.Result, error) {
		r.AttemptID = attempt
		if r.Rejection != nil {
			log.Info("proof rejected",
				"reason", r.Rejection.Reason,
				"elapsed", time.Since(started),
			)
		} else {
			log.Info("proof accepted",
				"hash", r.Payload.Hash,
				"captured_at", r.Payload.CapturedAt,
				"source", r.Payload.Source,
				"detail", r.Payload.Detail,
				"elapsed", time.Since(started),
			)
		}
		return r, nil
	}

	digest, err := v.hash(ctx, f)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return proof.Result{}, err
		}
		log.Debug("hash failed", "error", err)
		return done(proof.Reject(proof.ReasonUnreadable, MessageUnreadable, GuidanceUnreadable))
	}
	log.Debug("hash computed", "hash", digest)

	if isHashUsed != nil && isHashUsed(digest) {
		return done(proof.Reject(proof.ReasonAlreadyUsed, MessageAlreadyUsed, GuidanceAlreadyUsed))
	}

	ct, ok, err := v.resolver.Resolve(ctx, f)
	if err != nil {
		return proof.Result{}, err
	}
	if !ok {
		return done(proof.Reject(proof.ReasonNoCaptureTime, MessageNoCaptureTime, admission.GuidanceNoCaptureTime))
	}

	if rej := v.policy.Admit(ct.At, v.clock.Now()); rej != nil {
		return done(proof.Result{Rejection: rej})
	}

	return done(proof.Accept(proof.ProofPayload{
		File:       f,
		Hash:       digest,
		CapturedAt: ct.At,
		Source:     ct.Source,
		Detail:     ct.Detail,
	}))
}

// isNilFile also catches a nil pointer stored in the interface.
func isNilFile(f proof.File) bool {
	if f == nil {
		return true
	}
	v := reflect.ValueOf(f)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
