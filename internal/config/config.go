// Package config loads proofcheck settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/roach88/proofcheck/internal/admission"
	"github.com/roach88/proofcheck/internal/capture"
	"github.com/roach88/proofcheck/internal/ledger"
	"github.com/roach88/proofcheck/internal/store"
)

// Config holds every tunable of the verification pipeline.
type Config struct {
	// Timezone names the zone "today" is judged in. "Local" or empty means
	// the host zone.
	Timezone      string        `yaml:"timezone"`
	SkewTolerance time.Duration `yaml:"skew_tolerance"`
	Ledger        LedgerConfig  `yaml:"ledger"`
	OCR           OCRConfig     `yaml:"ocr"`
}

// LedgerConfig configures replay-ledger persistence.
type LedgerConfig struct {
	Namespace   string        `yaml:"namespace"`
	MaxRecords  int           `yaml:"max_records"`
	DBPath      string        `yaml:"db_path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// OCRConfig configures watermark recognition.
type OCRConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Language  string  `yaml:"language"`
	Scale     int     `yaml:"scale"`
	Threshold float64 `yaml:"threshold"`
	Whitelist string  `yaml:"whitelist"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Timezone:      "Local",
		SkewTolerance: admission.DefaultSkewTolerance,
		Ledger: LedgerConfig{
			Namespace:   ledger.DefaultNamespace,
			MaxRecords:  ledger.DefaultMaxRecords,
			DBPath:      "proofcheck.db",
			BusyTimeout: store.DefaultBusyTimeout,
		},
		OCR: OCRConfig{
			Enabled:   true,
			Language:  "eng",
			Scale:     capture.DefaultScale,
			Threshold: capture.DefaultThreshold,
			Whitelist: capture.DigitWhitelist,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := Parse(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document omits, and
// validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return cfg.Validate()
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.SkewTolerance < 0 {
		errs = append(errs, fmt.Errorf("skew_tolerance must not be negative, got %s", c.SkewTolerance))
	}
	if c.Ledger.MaxRecords < 1 {
		errs = append(errs, fmt.Errorf("ledger.max_records must be positive, got %d", c.Ledger.MaxRecords))
	}
	if c.Ledger.BusyTimeout < 0 {
		errs = append(errs, fmt.Errorf("ledger.busy_timeout must not be negative, got %s", c.Ledger.BusyTimeout))
	}
	if c.Ledger.Namespace == "" {
		errs = append(errs, errors.New("ledger.namespace must be set"))
	}
	if c.OCR.Scale < 1 {
		errs = append(errs, fmt.Errorf("ocr.scale must be at least 1, got %d", c.OCR.Scale))
	}
	if c.OCR.Threshold <= 0 || c.OCR.Threshold >= 255 {
		errs = append(errs, fmt.Errorf("ocr.threshold must be between 0 and 255, got %v", c.OCR.Threshold))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
