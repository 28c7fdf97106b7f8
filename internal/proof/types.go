package proof

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoInput is returned when verification is requested without a file.
var ErrNoInput = errors.New("proof: no input file")

// Source identifies which strategy produced a capture time.
type Source string

const (
	SourceMetadata Source = "metadata"
	SourceOCR      Source = "ocr"
)

// CaptureTime is a resolved capture timestamp and where it came from.
type CaptureTime struct {
	At     time.Time
	Source Source
	// Detail names the sub-strategy, e.g. the EXIF field or the OCR region.
	Detail string
}

// ProofPayload is handed back for an accepted submission.
//
// Hash depends only on the bytes of File. CapturedAt is never zero.
type ProofPayload struct {
	File       File
	Hash       string
	CapturedAt time.Time
	Source     Source
	// Detail names the EXIF field or OCR region that supplied CapturedAt.
	Detail string
}

// Reason categorises a rejection. Callers match on Reason, not on Message.
type Reason string

const (
	ReasonUnreadable    Reason = "unreadable_image"
	ReasonAlreadyUsed   Reason = "already_used"
	ReasonNoCaptureTime Reason = "no_capture_time"
	ReasonNotToday      Reason = "not_today"
	ReasonFutureDated   Reason = "future_dated"
)

// Rejection explains why a submission was refused.
type Rejection struct {
	Reason   Reason
	Message  string
	Guidance string
}

func (r *Rejection) String() string {
	if r.Guidance != "" {
		return fmt.Sprintf("%s: %s %s", r.Reason, r.Message, r.Guidance)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

// Result is the verdict of a verification. Exactly one of Payload and
// Rejection is set.
type Result struct {
	Payload   *ProofPayload
	Rejection *Rejection
	// AttemptID correlates the verdict with log lines.
	AttemptID string
}

// Accepted reports whether the submission passed every check.
func (r Result) Accepted() bool { return r.Payload != nil && r.Rejection == nil }

// Accept builds an accepting Result.
func Accept(p ProofPayload) Result { return Result{Payload: &p} }

// Reject builds a refusing Result.
func Reject(reason Reason, message, guidance string) Result {
	return Result{Rejection: &Rejection{Reason: reason, Message: message, Guidance: guidance}}
}

// UsedProofRecord is one ledger entry.
//
// Hash is unique within a user's ledger. CapturedAt is zero when unknown.
// UsedAt is zero when the stored usedAt could not be parsed; the stored
// text is then written back unchanged.
type UsedProofRecord struct {
	Hash       string
	UsedAt     time.Time
	CapturedAt time.Time
	Context    string

	rawUsedAt string
}

// isoMillis matches the millisecond UTC ISO-8601 form used by the stored format.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// storedLayouts are the ISO-8601 forms accepted when reading records.
var storedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseStored(s string) (time.Time, bool) {
	for _, layout := range storedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type usedProofWire struct {
	Hash       string  `json:"hash"`
	UsedAt     *string `json:"usedAt"`
	CapturedAt string  `json:"capturedAt,omitempty"`
	Context    string  `json:"context,omitempty"`
}

// MarshalJSON writes the record with ISO-8601 UTC timestamps.
func (r UsedProofRecord) MarshalJSON() ([]byte, error) {
	usedAt := r.rawUsedAt
	if usedAt == "" || !r.UsedAt.IsZero() {
		usedAt = r.UsedAt.UTC().Format(isoMillis)
	}
	w := usedProofWire{
		Hash:    r.Hash,
		UsedAt:  &usedAt,
		Context: r.Context,
	}
	if !r.CapturedAt.IsZero() {
		w.CapturedAt = r.CapturedAt.UTC().Format(isoMillis)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads a stored record. usedAt must be present as a string;
// text that is not a recognised ISO-8601 form is kept verbatim with a zero
// UsedAt. An unreadable capturedAt leaves CapturedAt zero.
func (r *UsedProofRecord) UnmarshalJSON(data []byte) error {
	var w usedProofWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.UsedAt == nil {
		return errors.New("usedAt: missing")
	}
	rec := UsedProofRecord{Hash: w.Hash, Context: w.Context}
	if t, ok := parseStored(*w.UsedAt); ok {
		rec.UsedAt = t
	} else {
		rec.rawUsedAt = *w.UsedAt
	}
	if w.CapturedAt != "" {
		rec.CapturedAt, _ = parseStored(w.CapturedAt)
	}
	*r = rec
	return nil
}
