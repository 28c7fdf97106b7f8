package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"sync"

	"github.com/roach88/proofcheck/internal/proof"
	"github.com/roach88/proofcheck/internal/testutil"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// fakeRecognizer "reads" text only from images that contain white pixels,
// which after thresholding means a light watermark was present.
type fakeRecognizer struct {
	mu       sync.Mutex
	text     string
	failOn   map[int]error
	calls    int
	closed   int
	sizes    []image.Rectangle
	closeErr error
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.sizes = append(f.sizes, img.Bounds())
	if err, ok := f.failOn[f.calls]; ok {
		return "", err
	}
	if testutil.HasWhite(img) {
		return f.text, nil
	}
	return "", nil
}

func (f *fakeRecognizer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

func (f *fakeRecognizer) factory() RecognizerFactory {
	return func() (TextRecognizer, error) { return f, nil }
}

func failingFactory() (TextRecognizer, error) {
	return nil, errors.New("engine failed to start")
}

// countingStrategy records calls and returns a fixed answer.
type countingStrategy struct {
	name  string
	ct    proof.CaptureTime
	ok    bool
	calls int
}

func (c *countingStrategy) Name() string { return c.name }

func (c *countingStrategy) Extract(context.Context, proof.File) (proof.CaptureTime, bool) {
	c.calls++
	return c.ct, c.ok
}
