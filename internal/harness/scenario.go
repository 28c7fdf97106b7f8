package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/proofcheck/internal/proof"
)

// Scenario defines a verification scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the fixed wall clock at the start of the flow (RFC 3339).
	Now string `yaml:"now"`

	// Timezone names the zone "today" is judged in. Defaults to UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// SkewTolerance overrides the future-dated allowance when set.
	SkewTolerance *time.Duration `yaml:"skew_tolerance,omitempty"`

	// MaxRecords overrides the per-user ledger bound when positive.
	MaxRecords int `yaml:"max_records,omitempty"`

	// Photos declares the synthetic files the flow refers to by name.
	Photos map[string]Photo `yaml:"photos"`

	// Flow contains the verify steps with expected verdicts.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and the final ledger.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Photo describes a synthetic image.
type Photo struct {
	// ExifOriginal, ExifDigitized and ExifModified are written verbatim
	// into DateTimeOriginal, DateTimeDigitized and DateTime.
	ExifOriginal  string `yaml:"exif_original,omitempty"`
	ExifDigitized string `yaml:"exif_digitized,omitempty"`
	ExifModified  string `yaml:"exif_modified,omitempty"`

	// Watermark is the text the OCR engine reads in every region.
	Watermark string `yaml:"watermark,omitempty"`

	// SameAs names another photo whose bytes this one copies.
	SameAs string `yaml:"same_as,omitempty"`

	// Missing makes a file that cannot be opened.
	Missing bool `yaml:"missing,omitempty"`
}

// FlowStep verifies one photo.
type FlowStep struct {
	// Verify is the photo name.
	Verify string `yaml:"verify"`

	// User scopes the ledger. Empty means anonymous.
	User string `yaml:"user,omitempty"`

	// Commit records an accepted photo in the ledger.
	Commit bool `yaml:"commit,omitempty"`

	// Context is stored with a committed record.
	Context string `yaml:"context,omitempty"`

	// Advance moves the clock before the step runs.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Expect specifies the expected outcome. If nil, no validation is
	// performed for this step.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected verdict.
type ExpectClause struct {
	// Verdict is "accepted" or a rejection reason such as "not_today".
	Verdict string `yaml:"verdict"`

	// Source is the expected capture-time source of an accepted photo.
	Source string `yaml:"source,omitempty"`

	// CapturedAt is the expected capture time (RFC 3339).
	CapturedAt string `yaml:"captured_at,omitempty"`
}

// Assertion validates the trace or the final ledger.
type Assertion struct {
	// Type specifies the assertion type:
	// - "ledger_count": User's ledger holds exactly Count records
	// - "ledger_contains": User's ledger holds Photo's hash
	// - "ledger_order": User's ledger lists exactly Photos, newest first
	// - "verdict_count": exactly Count steps ended with Verdict
	Type string `yaml:"type"`

	User    string   `yaml:"user,omitempty"`
	Photo   string   `yaml:"photo,omitempty"`
	Photos  []string `yaml:"photos,omitempty"`
	Verdict string   `yaml:"verdict,omitempty"`
	Count   int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertLedgerCount    = "ledger_count"
	AssertLedgerContains = "ledger_contains"
	AssertLedgerOrder    = "ledger_order"
	AssertVerdictCount   = "verdict_count"
)

// VerdictAccepted is the trace verdict of an accepted photo.
const VerdictAccepted = "accepted"

var knownVerdicts = map[string]bool{
	VerdictAccepted:                   true,
	string(proof.ReasonUnreadable):    true,
	string(proof.ReasonAlreadyUsed):   true,
	string(proof.ReasonNoCaptureTime): true,
	string(proof.ReasonNotToday):      true,
	string(proof.ReasonFutureDated):   true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios lists the YAML files under dir, optionally keeping only
// those whose base name (without extension) matches the glob filter.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// location resolves the scenario's zone.
func (s *Scenario) location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
		return fmt.Errorf("now must be an RFC 3339 time: %w", err)
	}

	if _, err := s.location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	if s.SkewTolerance != nil && *s.SkewTolerance < 0 {
		return fmt.Errorf("skew_tolerance must not be negative")
	}

	if s.MaxRecords < 0 {
		return fmt.Errorf("max_records must not be negative")
	}

	if len(s.Photos) == 0 {
		return fmt.Errorf("photos map is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for name, p := range s.Photos {
		if err := validatePhoto(s, name, p); err != nil {
			return err
		}
	}

	for i, step := range s.Flow {
		if step.Verify == "" {
			return fmt.Errorf("flow[%d]: verify is required", i)
		}
		if _, ok := s.Photos[step.Verify]; !ok {
			return fmt.Errorf("flow[%d]: unknown photo %q", i, step.Verify)
		}
		if step.Advance < 0 {
			return fmt.Errorf("flow[%d]: advance must not be negative", i)
		}
		if step.Expect != nil {
			if err := validateExpect(i, step.Expect); err != nil {
				return err
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(s, i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validatePhoto(s *Scenario, name string, p Photo) error {
	if p.SameAs != "" {
		target, ok := s.Photos[p.SameAs]
		if !ok {
			return fmt.Errorf("photos.%s: same_as refers to unknown photo %q", name, p.SameAs)
		}
		if target.SameAs != "" || target.Missing {
			return fmt.Errorf("photos.%s: same_as must name a concrete photo", name)
		}
		if p.Missing || p.ExifOriginal != "" || p.ExifDigitized != "" || p.ExifModified != "" {
			return fmt.Errorf("photos.%s: same_as cannot be combined with other content", name)
		}
	}
	if p.Missing && (p.ExifOriginal != "" || p.ExifDigitized != "" || p.ExifModified != "" || p.Watermark != "") {
		return fmt.Errorf("photos.%s: a missing photo has no content", name)
	}
	return nil
}

func validateExpect(index int, e *ExpectClause) error {
	if e.Verdict == "" {
		return fmt.Errorf("flow[%d].expect: verdict is required", index)
	}
	if !knownVerdicts[e.Verdict] {
		return fmt.Errorf("flow[%d].expect: unknown verdict %q", index, e.Verdict)
	}
	if e.Verdict != VerdictAccepted && (e.Source != "" || e.CapturedAt != "") {
		return fmt.Errorf("flow[%d].expect: source and captured_at only apply to accepted photos", index)
	}
	if e.CapturedAt != "" {
		if _, err := time.Parse(time.RFC3339, e.CapturedAt); err != nil {
			return fmt.Errorf("flow[%d].expect: captured_at: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(s *Scenario, index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLedgerCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for ledger_count", index)
		}
	case AssertLedgerContains:
		if _, ok := s.Photos[a.Photo]; !ok {
			return fmt.Errorf("assertions[%d]: ledger_contains refers to unknown photo %q", index, a.Photo)
		}
	case AssertLedgerOrder:
		for _, name := range a.Photos {
			if _, ok := s.Photos[name]; !ok {
				return fmt.Errorf("assertions[%d]: ledger_order refers to unknown photo %q", index, name)
			}
		}
	case AssertVerdictCount:
		if !knownVerdicts[a.Verdict] {
			return fmt.Errorf("assertions[%d]: unknown verdict %q for verdict_count", index, a.Verdict)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for verdict_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
