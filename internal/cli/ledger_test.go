package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/proofcheck/internal/hashing"
)

func TestLedgerMark_ThenList(t *testing.T) {
	env := newEnv(t, "json")
	first := hashing.SumBytes([]byte("first"))
	second := hashing.SumBytes([]byte("second"))

	out, err := execute(t, NewLedgerCommand(env.opts), "mark", "--user", "alice", "--context", "vibe:7",
		"--captured-at", "2026-03-14T07:00:00Z", first)
	require.NoError(t, err)
	mark := responseData(t, decodeResponse(t, out))
	assert.Equal(t, true, mark["added"])
	assert.Equal(t, "healthzen:usedProofs:v1:alice", mark["scope"])

	_, err = execute(t, NewLedgerCommand(env.opts), "mark", "--user", "alice", second)
	require.NoError(t, err)

	out, err = execute(t, NewLedgerCommand(env.opts), "list", "--user", "alice")
	require.NoError(t, err)
	list := responseData(t, decodeResponse(t, out))
	records, ok := list["records"].([]any)
	require.True(t, ok)
	require.Len(t, records, 2)

	// Newest first
	newest := records[0].(map[string]any)
	oldest := records[1].(map[string]any)
	assert.Equal(t, second, newest["hash"])
	assert.NotContains(t, newest, "captured_at")
	assert.Equal(t, first, oldest["hash"])
	assert.Equal(t, "vibe:7", oldest["context"])
	assert.Equal(t, "2026-03-14T07:00:00Z", oldest["captured_at"])
}

func TestLedgerMark_Duplicate(t *testing.T) {
	env := newEnv(t, "text")
	hash := hashing.SumBytes([]byte("photo"))

	out, err := execute(t, NewLedgerCommand(env.opts), "mark", hash)
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded "+hash)

	out, err = execute(t, NewLedgerCommand(env.opts), "mark", hash)
	require.NoError(t, err)
	assert.Contains(t, out, "already recorded")
	assert.Len(t, env.records(t, ""), 1)
}

func TestLedgerMark_NormalisesHash(t *testing.T) {
	env := newEnv(t, "text")
	hash := hashing.SumBytes([]byte("photo"))

	_, err := execute(t, NewLedgerCommand(env.opts), "mark", "--user", "alice", " "+strings.ToUpper(hash)+" ")
	require.NoError(t, err)

	recs := env.records(t, "alice")
	require.Len(t, recs, 1)
	assert.Equal(t, hash, recs[0].Hash)
	assert.True(t, recs[0].UsedAt.Equal(today))
}

func TestLedgerMark_InvalidInput(t *testing.T) {
	valid := hashing.SumBytes([]byte("photo"))
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short_hash", []string{"mark", "abc123"}, "invalid hash"},
		{"not_hex", []string{"mark", strings.Repeat("z", hashing.DigestLen)}, "invalid hash"},
		{"bad_captured_at", []string{"mark", "--captured-at", "yesterday", valid}, "invalid --captured-at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, "text")

			_, err := execute(t, NewLedgerCommand(env.opts), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLedgerList_Empty(t *testing.T) {
	env := newEnv(t, "text")

	out, err := execute(t, NewLedgerCommand(env.opts), "list")
	require.NoError(t, err)
	assert.Equal(t, "Ledger healthzen:usedProofs:v1:anonymous: 0 record(s)\n", out)
}

func TestLedgerList_AfterVerifyCommit(t *testing.T) {
	env := newEnv(t, "text")
	photo, data := env.photoTakenAt(t, "run.jpg", time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	_, err := execute(t, NewVerifyCommand(env.opts), "--user", "alice", "--commit", "--context", "challenge:42", photo)
	require.NoError(t, err)

	out, err := execute(t, NewLedgerCommand(env.opts), "list", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "1 record(s)")
	assert.Contains(t, out, hashing.SumBytes(data))
	assert.Contains(t, out, "[challenge:42]")
}

func TestLedgerScopes(t *testing.T) {
	env := newEnv(t, "json")
	hash := hashing.SumBytes([]byte("photo"))

	for _, user := range []string{"alice", "bob"} {
		_, err := execute(t, NewLedgerCommand(env.opts), "mark", "--user", user, hash)
		require.NoError(t, err)
	}

	out, err := execute(t, NewLedgerCommand(env.opts), "scopes")
	require.NoError(t, err)
	payload := responseData(t, decodeResponse(t, out))
	assert.Equal(t, "healthzen:usedProofs:v1", payload["namespace"])
	assert.ElementsMatch(t, []any{"alice", "bob"}, payload["scopes"])
}

func TestLedgerScopes_Empty(t *testing.T) {
	env := newEnv(t, "text")

	out, err := execute(t, NewLedgerCommand(env.opts), "scopes")
	require.NoError(t, err)
	assert.Equal(t, "No ledgers in healthzen:usedProofs:v1\n", out)
}
