// Package hashing computes content fingerprints of submitted images.
//
// The fingerprint is the lowercase hex SHA-256 of the raw file bytes. It does
// not depend on the file name or on any metadata interpretation, so two
// copies of the same bytes always collide and any byte change does not.
package hashing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/roach88/proofcheck/internal/proof"
)

// DigestLen is the length of a hex digest returned by Sum.
const DigestLen = sha256.Size * 2

// chunkSize bounds how much is read between cancellation checks.
const chunkSize = 1 << 20

// Sum streams r into SHA-256 and returns the hex digest.
// The context is checked between chunks so large files can be abandoned.
func Sum(ctx context.Context, r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("hash: read: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile opens f and hashes its contents.
func SumFile(ctx context.Context, f proof.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("hash: open %s: %w", f.Name(), err)
	}
	defer rc.Close()
	return Sum(ctx, rc)
}

// SumBytes hashes an in-memory buffer.
func SumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Result is delivered by Start.
type Result struct {
	Digest string
	Err    error
}

// Start hashes f on its own goroutine and delivers exactly one Result on the
// returned channel, which is buffered so the goroutine never blocks if the
// caller stops listening.
func Start(ctx context.Context, f proof.File) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		digest, err := SumFile(ctx, f)
		out <- Result{Digest: digest, Err: err}
	}()
	return out
}
