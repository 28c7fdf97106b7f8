// Package admission decides whether a resolved capture time is acceptable
// evidence that something happened today.
//
// "Today" is a calendar question, not an elapsed-time one: a photo from
// 00:05 submitted at 23:55 is today, a photo from 23:59 yesterday submitted
// at 00:01 is not. Calendar days are compared in an explicit location so
// tests never depend on the host zone.
package admission

import (
	"time"

	"github.com/roach88/proofcheck/internal/proof"
)

// DefaultSkewTolerance absorbs clock drift between camera and device.
const DefaultSkewTolerance = 2 * time.Minute

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// DayComparer reports whether a and b fall on the same calendar day.
type DayComparer func(a, b time.Time) bool

// SameDayIn returns a DayComparer that compares year, month and day in loc.
func SameDayIn(loc *time.Location) DayComparer {
	if loc == nil {
		loc = time.Local
	}
	return func(a, b time.Time) bool {
		ay, am, ad := a.In(loc).Date()
		by, bm, bd := b.In(loc).Date()
		return ay == by && am == bm && ad == bd
	}
}

// Policy holds the temporal admission rules.
type Policy struct {
	sameDay DayComparer
	skew    time.Duration
}

// Option configures a Policy.
type Option func(*Policy)

// WithSkewTolerance sets how far past now a capture time may be.
func WithSkewTolerance(d time.Duration) Option {
	return func(p *Policy) { p.skew = d }
}

// WithDayComparer replaces the calendar-day comparison.
func WithDayComparer(cmp DayComparer) Option {
	return func(p *Policy) { p.sameDay = cmp }
}

// WithLocation compares calendar days in loc.
func WithLocation(loc *time.Location) Option {
	return func(p *Policy) { p.sameDay = SameDayIn(loc) }
}

// New creates a Policy. Days are compared in time.Local and the skew
// tolerance is DefaultSkewTolerance unless overridden.
func New(opts ...Option) *Policy {
	p := &Policy{
		sameDay: SameDayIn(time.Local),
		skew:    DefaultSkewTolerance,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SkewTolerance returns the configured future tolerance.
func (p *Policy) SkewTolerance() time.Duration { return p.skew }

// Admit checks capturedAt against now. A zero capturedAt means nothing was
// resolved. Rules apply in order: presence, same calendar day, future skew.
// The returned Rejection is nil when the capture time is admitted.
func (p *Policy) Admit(capturedAt, now time.Time) *proof.Rejection {
	if capturedAt.IsZero() {
		return &proof.Rejection{
			Reason:   proof.ReasonNoCaptureTime,
			Message:  "No capture time found.",
			Guidance: GuidanceNoCaptureTime,
		}
	}
	if !p.sameDay(capturedAt, now) {
		return &proof.Rejection{
			Reason:  proof.ReasonNotToday,
			Message: MessageNotToday,
		}
	}
	if capturedAt.After(now.Add(p.skew)) {
		return &proof.Rejection{
			Reason:   proof.ReasonFutureDated,
			Message:  MessageNotToday,
			Guidance: "The capture time is ahead of this device's clock.",
		}
	}
	return nil
}

// User-facing wording shared with the verification facade.
const (
	MessageNotToday       = "Photo must be taken today (with correct date/time)."
	GuidanceNoCaptureTime = "Upload an original camera photo (EXIF) or a photo with a clearly visible date/time watermark."
)
