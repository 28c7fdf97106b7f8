package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/proofcheck/internal/capture"
	"github.com/roach88/proofcheck/internal/config"
	"github.com/roach88/proofcheck/internal/ledger"
	"github.com/roach88/proofcheck/internal/proof"
	"github.com/roach88/proofcheck/internal/store"
	"github.com/roach88/proofcheck/internal/testutil"
)

// today is the fixed "now" of every CLI test, in UTC.
var today = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

// staticRecognizer reads the same text in every region.
type staticRecognizer struct{ text string }

func (r staticRecognizer) Recognize(context.Context, image.Image) (string, error) {
	return r.text, nil
}

func (staticRecognizer) Close() error { return nil }

func recognizing(text string) capture.RecognizerFactory {
	return func() (capture.TextRecognizer, error) { return staticRecognizer{text: text}, nil }
}

type cliEnv struct {
	dir    string
	dbPath string
	opts   *RootOptions
}

// newEnv writes a UTC config pointing at a fresh ledger database. OCR
// reads nothing unless the test swaps Recognizers.
func newEnv(t *testing.T, format string) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	cfgPath := filepath.Join(dir, "proofcheck.yaml")
	cfg := "timezone: UTC\nledger:\n  db_path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	return &cliEnv{
		dir:    dir,
		dbPath: dbPath,
		opts: &RootOptions{
			Format:      format,
			ConfigPath:  cfgPath,
			Recognizers: recognizing(""),
			Clock:       testutil.NewFixedClock(today),
		},
	}
}

func (e *cliEnv) writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// photoTakenAt writes a JPEG whose EXIF DateTimeOriginal is at.
func (e *cliEnv) photoTakenAt(t *testing.T, name string, at time.Time) (string, []byte) {
	t.Helper()
	data := testutil.JPEGWithExif(t, testutil.ExifDates{Original: at})
	return e.writeFile(t, name, data), data
}

// records reads userID's history straight from the database.
func (e *cliEnv) records(t *testing.T, userID string) []proof.UsedProofRecord {
	t.Helper()
	st, err := store.Open(e.dbPath)
	require.NoError(t, err)
	defer st.Close()

	recs, err := ledger.New(st, ledger.WithNamespace(config.Default().Ledger.Namespace)).
		Records(context.Background(), userID)
	require.NoError(t, err)
	return recs
}

// execute runs cmd with args and returns what it printed on stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "stdout: %s", out)
	return resp
}

func responseData(t *testing.T, resp CLIResponse) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data: %#v", resp.Data)
	return data
}
