package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer is the gosseract-backed TextRecognizer.
type TesseractRecognizer struct {
	client *gosseract.Client
}

// NewTesseractFactory returns a RecognizerFactory that starts Tesseract
// with language lang and the given character whitelist.
func NewTesseractFactory(lang, whitelist string) RecognizerFactory {
	return func() (TextRecognizer, error) {
		client := gosseract.NewClient()
		if err := client.SetLanguage(lang); err != nil {
			client.Close()
			return nil, fmt.Errorf("tesseract: set language %q: %w", lang, err)
		}
		if whitelist != "" {
			if err := client.SetWhitelist(whitelist); err != nil {
				client.Close()
				return nil, fmt.Errorf("tesseract: set whitelist: %w", err)
			}
		}
		return &TesseractRecognizer{client: client}, nil
	}
}

// Recognize implements TextRecognizer. The image is handed to Tesseract as
// PNG.
func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("tesseract: encode: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("tesseract: set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: recognise: %w", err)
	}
	return text, nil
}

// Close implements TextRecognizer.
func (t *TesseractRecognizer) Close() error {
	return t.client.Close()
}
