// Package ledger keeps the per-user history of proof hashes that have
// already been spent.
//
// Each user scope is one value in a key-value store: the key is
// "<namespace>:<userID>" and the value is a JSON array of records, newest
// first, capped at a retention bound. Appending a hash that is already
// present is a no-op, so a photo can be spent at most once per scope.
//
// Appending is never automatic. Callers verify a proof, apply their own
// business effect, and only then call Append, so a proof whose downstream
// effect failed is not burned.
//
// Ledgers are device-local. Two devices acting for the same user keep
// independent ledgers; no reconciliation is attempted.
package ledger
