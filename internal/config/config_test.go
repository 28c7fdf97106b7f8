package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Minute, cfg.SkewTolerance)
	assert.Equal(t, 200, cfg.Ledger.MaxRecords)
	assert.Equal(t, "healthzen:usedProofs:v1", cfg.Ledger.Namespace)
	assert.Equal(t, 5*time.Second, cfg.Ledger.BusyTimeout)
	assert.Equal(t, 3, cfg.OCR.Scale)
	assert.Equal(t, 190.0, cfg.OCR.Threshold)
	assert.Equal(t, "0123456789:-./ ", cfg.OCR.Whitelist)
	assert.True(t, cfg.OCR.Enabled)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesOnlyGivenFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proofcheck.yaml")
	doc := `
timezone: Asia/Tokyo
skew_tolerance: 5m
ledger:
  max_records: 50
  db_path: /tmp/ledger.db
  busy_timeout: 750ms
ocr:
  enabled: false
  threshold: 200
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.SkewTolerance)
	assert.Equal(t, 50, cfg.Ledger.MaxRecords)
	assert.Equal(t, "/tmp/ledger.db", cfg.Ledger.DBPath)
	assert.Equal(t, 750*time.Millisecond, cfg.Ledger.BusyTimeout)
	assert.Equal(t, "healthzen:usedProofs:v1", cfg.Ledger.Namespace, "omitted keys keep defaults")
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, 200.0, cfg.OCR.Threshold)
	assert.Equal(t, 3, cfg.OCR.Scale)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"negative skew", "skew_tolerance: -1m", "skew_tolerance"},
		{"zero bound", "ledger:\n  max_records: 0", "max_records"},
		{"negative busy timeout", "ledger:\n  busy_timeout: -1s", "busy_timeout"},
		{"empty namespace", "ledger:\n  namespace: \"\"", "namespace"},
		{"bad scale", "ocr:\n  scale: 0", "ocr.scale"},
		{"bad threshold", "ocr:\n  threshold: 300", "ocr.threshold"},
		{"unknown zone", "timezone: Mars/Olympus", "Mars/Olympus"},
		{"not yaml", "skew_tolerance: [", "parse"},
		{"bad duration", "skew_tolerance: soon", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := Parse([]byte(tt.doc), &cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLocation_Local(t *testing.T) {
	for _, tz := range []string{"", "Local"} {
		loc, err := Config{Timezone: tz}.Location()
		require.NoError(t, err)
		assert.Equal(t, time.Local, loc)
	}
}
