package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: minimal
description: "One accepted photo"
now: "2026-03-14T18:00:00Z"
skew_tolerance: 30s
photos:
  run:
    exif_original: "2026:03:14 09:30:00"
flow:
  - verify: run
    user: alice
    advance: 1m
    expect:
      verdict: accepted
assertions:
  - type: verdict_count
    verdict: accepted
    count: 1
`

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(validScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.NotNil(t, s.SkewTolerance)
	assert.Equal(t, 30*time.Second, *s.SkewTolerance)
	require.Len(t, s.Flow, 1)
	assert.Equal(t, time.Minute, s.Flow[0].Advance)
	assert.Equal(t, "2026:03:14 09:30:00", s.Photos["run"].ExifOriginal)
}

func TestParseScenario_UnknownField(t *testing.T) {
	doc := validScenario + "assertion: []\n"

	_, err := ParseScenario([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	base := func(body string) string {
		return "name: x\ndescription: y\nnow: \"2026-03-14T18:00:00Z\"\n" + body
	}
	onePhoto := "photos:\n  run: {exif_original: \"2026:03:14 09:30:00\"}\n"
	oneStep := "flow:\n  - verify: run\n"

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "description: y\nnow: \"2026-03-14T18:00:00Z\"\n" + onePhoto + oneStep, "name is required"},
		{"bad now", "name: x\ndescription: y\nnow: yesterday\n" + onePhoto + oneStep, "now must be an RFC 3339 time"},
		{"bad timezone", base("timezone: Mars/Olympus\n" + onePhoto + oneStep), "timezone"},
		{"no photos", base(oneStep), "photos map is required"},
		{"no flow", base(onePhoto), "flow list is required"},
		{"unknown photo", base(onePhoto + "flow:\n  - verify: walk\n"), `unknown photo "walk"`},
		{"negative advance", base(onePhoto + "flow:\n  - verify: run\n    advance: -1m\n"), "advance must not be negative"},
		{"unknown verdict", base(onePhoto + "flow:\n  - verify: run\n    expect: {verdict: maybe}\n"), `unknown verdict "maybe"`},
		{"source on rejection", base(onePhoto + "flow:\n  - verify: run\n    expect: {verdict: not_today, source: ocr}\n"), "only apply to accepted"},
		{"dangling same_as", base("photos:\n  copy: {same_as: run}\n" + "flow:\n  - verify: copy\n"), "unknown photo \"run\""},
		{"chained same_as", base(onePhoto + "  a: {same_as: run}\n  b: {same_as: a}\n" + oneStep), "concrete photo"},
		{"missing with content", base("photos:\n  run: {missing: true, watermark: \"12:00\"}\n" + oneStep), "no content"},
		{"unknown assertion", base(onePhoto + oneStep + "assertions:\n  - type: trace_contains\n"), "unknown assertion type"},
		{"ledger_contains unknown photo", base(onePhoto + oneStep + "assertions:\n  - {type: ledger_contains, photo: walk}\n"), "unknown photo"},
		{"verdict_count without verdict", base(onePhoto + oneStep + "assertions:\n  - {type: verdict_count, count: 1}\n"), "unknown verdict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_replay.yaml", "a_day.yml", "notes.txt", "sub/c_replay.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(validScenario), 0o644))
	}

	all, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_day.yml"),
		filepath.Join(dir, "b_replay.yaml"),
		filepath.Join(dir, "sub", "c_replay.yaml"),
	}, all)

	filtered, err := FindScenarios(dir, "*_replay")
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	_, err = FindScenarios(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
