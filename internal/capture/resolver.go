package capture

import (
	"context"
	"log/slog"

	"github.com/roach88/proofcheck/internal/proof"
)

// Strategy is one way of finding a capture time. Extract returns false when
// the strategy found nothing usable; it does not return errors.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, f proof.File) (proof.CaptureTime, bool)
}

// Resolver tries strategies in priority order and stops at the first hit.
type Resolver struct {
	strategies []Strategy
}

// NewResolver creates a Resolver. The order of strategies is the order they
// are tried in.
func NewResolver(strategies ...Strategy) *Resolver {
	s := make([]Strategy, len(strategies))
	copy(s, strategies)
	return &Resolver{strategies: s}
}

// Resolve returns the first capture time any strategy produces.
// The error is non-nil only when ctx is done.
func (r *Resolver) Resolve(ctx context.Context, f proof.File) (proof.CaptureTime, bool, error) {
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return proof.CaptureTime{}, false, err
		}
		ct, ok := s.Extract(ctx, f)
		if ok {
			slog.Debug("capture time resolved",
				"strategy", s.Name(),
				"detail", ct.Detail,
				"captured_at", ct.At,
			)
			return ct, true, nil
		}
		slog.Debug("capture strategy found nothing", "strategy", s.Name())
	}
	if err := ctx.Err(); err != nil {
		return proof.CaptureTime{}, false, err
	}
	return proof.CaptureTime{}, false, nil
}
