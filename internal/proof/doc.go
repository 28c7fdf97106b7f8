// Package proof holds the types shared by the proof-of-completion
// verification pipeline.
//
// A submission flows through the pipeline as a File. An accepted submission
// yields a ProofPayload; a refused one yields a Rejection. Both travel inside
// a Result so callers branch on data, not on errors.
//
// Persisted history is a list of UsedProofRecord values, newest first,
// owned by the ledger package.
package proof
