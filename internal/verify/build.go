package verify

import (
	"fmt"

	"github.com/roach88/proofcheck/internal/admission"
	"github.com/roach88/proofcheck/internal/capture"
	"github.com/roach88/proofcheck/internal/config"
)

// FromConfig wires the production pipeline: EXIF metadata first, then
// watermark OCR when enabled. A nil recognizers factory starts Tesseract.
func FromConfig(cfg config.Config, recognizers capture.RecognizerFactory, opts ...Option) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	strategies := []capture.Strategy{
		capture.NewMetadataExtractor(capture.ExifReader{Location: loc}),
	}
	if cfg.OCR.Enabled {
		if recognizers == nil {
			recognizers = capture.NewTesseractFactory(cfg.OCR.Language, cfg.OCR.Whitelist)
		}
		strategies = append(strategies, capture.NewOCRExtractor(recognizers, capture.OCROptions{
			Scale:     cfg.OCR.Scale,
			Threshold: cfg.OCR.Threshold,
			Location:  loc,
		}))
	}

	policy := admission.New(
		admission.WithLocation(loc),
		admission.WithSkewTolerance(cfg.SkewTolerance),
	)
	return New(capture.NewResolver(strategies...), policy, opts...), nil
}
