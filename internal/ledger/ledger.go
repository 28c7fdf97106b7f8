package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/proofcheck/internal/proof"
)

const (
	// DefaultNamespace prefixes every scope key.
	DefaultNamespace = "healthzen:usedProofs:v1"

	// DefaultMaxRecords is the retention bound per scope.
	DefaultMaxRecords = 200

	// AnonymousScope is used when no user identifier is available.
	AnonymousScope = "anonymous"
)

// Ledger stores spent proof hashes per user.
//
// A Ledger does not lock across Contains and Append; one writer per scope
// is assumed.
type Ledger struct {
	kv        KV
	namespace string
	max       int
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithNamespace sets the key prefix.
func WithNamespace(ns string) Option {
	return func(l *Ledger) { l.namespace = ns }
}

// WithMaxRecords sets the retention bound. Values below 1 are ignored.
func WithMaxRecords(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.max = n
		}
	}
}

// New creates a Ledger over kv.
func New(kv KV, opts ...Option) *Ledger {
	l := &Ledger{
		kv:        kv,
		namespace: DefaultNamespace,
		max:       DefaultMaxRecords,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxRecords returns the retention bound.
func (l *Ledger) MaxRecords() int { return l.max }

// Key returns the storage key for userID. Identifiers are NFC-normalised
// and trimmed; an empty identifier maps to AnonymousScope.
func (l *Ledger) Key(userID string) string {
	id := strings.TrimSpace(norm.NFC.String(userID))
	if id == "" {
		id = AnonymousScope
	}
	return l.namespace + ":" + id
}

// Records returns the scope's history, newest first. A missing or corrupt
// value reads as an empty history; entries lacking a hash or a usedAt
// string are skipped.
func (l *Ledger) Records(ctx context.Context, userID string) ([]proof.UsedProofRecord, error) {
	key := l.Key(userID)
	raw, ok, err := l.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return decodeRecords(key, raw), nil
}

// Contains reports whether hash was already spent in userID's scope.
// The empty hash is never contained.
func (l *Ledger) Contains(ctx context.Context, userID, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	records, err := l.Records(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.Hash == hash {
			return true, nil
		}
	}
	return false, nil
}

// Append records rec as the newest entry in userID's scope and trims the
// oldest entries beyond the retention bound. It reports false, without
// writing, when rec.Hash is already present.
func (l *Ledger) Append(ctx context.Context, userID string, rec proof.UsedProofRecord) (bool, error) {
	if rec.Hash == "" {
		return false, fmt.Errorf("ledger: append: empty hash")
	}
	if rec.UsedAt.IsZero() {
		return false, fmt.Errorf("ledger: append %s: usedAt not set", rec.Hash)
	}

	existing, err := l.Records(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range existing {
		if r.Hash == rec.Hash {
			slog.Debug("ledger: hash already recorded, skipping", "hash", rec.Hash)
			return false, nil
		}
	}

	next := make([]proof.UsedProofRecord, 0, min(len(existing)+1, l.max))
	next = append(next, rec)
	next = append(next, existing...)
	if len(next) > l.max {
		next = next[:l.max]
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("ledger: encode: %w", err)
	}
	key := l.Key(userID)
	if err := l.kv.Set(ctx, key, raw); err != nil {
		return false, fmt.Errorf("ledger: write %s: %w", key, err)
	}
	slog.Info("ledger: hash recorded", "scope", key, "hash", rec.Hash, "context", rec.Context, "size", len(next))
	return true, nil
}

// Lookup binds Contains to one scope as a predicate. Read errors are
// logged and treated as "not used" so a storage fault never blocks a
// submission outright.
func (l *Ledger) Lookup(ctx context.Context, userID string) func(hash string) bool {
	return func(hash string) bool {
		used, err := l.Contains(ctx, userID, hash)
		if err != nil {
			slog.Warn("ledger: lookup failed", "error", err)
			return false
		}
		return used
	}
}

func decodeRecords(key string, raw []byte) []proof.UsedProofRecord {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("ledger: discarding unreadable value", "scope", key, "error", err)
		return nil
	}
	out := make([]proof.UsedProofRecord, 0, len(items))
	for _, item := range items {
		var r proof.UsedProofRecord
		if err := json.Unmarshal(item, &r); err != nil || r.Hash == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
