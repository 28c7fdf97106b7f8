package capture

import (
	"context"
	"image"
	"log/slog"
	"time"

	// Decoders for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/roach88/proofcheck/internal/proof"
)

// DigitWhitelist restricts recognition to characters that can appear in a
// date/time watermark.
const DigitWhitelist = "0123456789:-./ "

// TextRecognizer is an OCR engine instance. Close releases the engine and
// must be called once the caller is done with it.
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// RecognizerFactory starts a fresh engine instance.
type RecognizerFactory func() (TextRecognizer, error)

// OCROptions tunes the OCR strategy. Zero fields take defaults.
type OCROptions struct {
	Regions   []Region
	Scale     int
	Threshold float64
	Location  *time.Location
}

// OCRExtractor is the watermark-reading Strategy.
type OCRExtractor struct {
	newRecognizer RecognizerFactory
	regions       []Region
	scale         int
	threshold     float64
	loc           *time.Location
}

// NewOCRExtractor creates an OCR strategy that starts one engine per Extract
// call through factory.
func NewOCRExtractor(factory RecognizerFactory, opts OCROptions) *OCRExtractor {
	o := &OCRExtractor{
		newRecognizer: factory,
		regions:       opts.Regions,
		scale:         opts.Scale,
		threshold:     opts.Threshold,
		loc:           opts.Location,
	}
	if len(o.regions) == 0 {
		o.regions = DefaultRegions
	}
	if o.scale <= 0 {
		o.scale = DefaultScale
	}
	if o.threshold <= 0 {
		o.threshold = DefaultThreshold
	}
	if o.loc == nil {
		o.loc = time.Local
	}
	return o
}

// Name implements Strategy.
func (o *OCRExtractor) Name() string { return string(proof.SourceOCR) }

// Extract decodes f, then reads each region in order until one parses.
// The engine is closed before Extract returns, whatever the outcome.
func (o *OCRExtractor) Extract(ctx context.Context, f proof.File) (proof.CaptureTime, bool) {
	img, err := decodeImage(f)
	if err != nil {
		slog.Debug("ocr: decode failed", "file", f.Name(), "error", err)
		return proof.CaptureTime{}, false
	}

	rec, err := o.newRecognizer()
	if err != nil {
		slog.Warn("ocr: engine unavailable", "error", err)
		return proof.CaptureTime{}, false
	}
	defer func() {
		if err := rec.Close(); err != nil {
			slog.Warn("ocr: engine close failed", "error", err)
		}
	}()

	for _, region := range o.regions {
		if ctx.Err() != nil {
			return proof.CaptureTime{}, false
		}
		rect := region.Rect(img.Bounds())
		if rect.Empty() {
			continue
		}
		prepared := Preprocess(img, rect, o.scale, o.threshold)

		text, err := rec.Recognize(ctx, prepared)
		if err != nil {
			slog.Warn("ocr: recognition failed", "region", region.Name, "error", err)
			continue
		}
		if t, ok := ParseDateTime(text, o.loc); ok {
			return proof.CaptureTime{At: t, Source: proof.SourceOCR, Detail: region.Name}, true
		}
		slog.Debug("ocr: no timestamp in region", "region", region.Name, "text", text)
	}
	return proof.CaptureTime{}, false
}

func decodeImage(f proof.File) (image.Image, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	return img, err
}
