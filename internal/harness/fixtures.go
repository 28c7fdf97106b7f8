package harness

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/roach88/proofcheck/internal/hashing"
	"github.com/roach88/proofcheck/internal/proof"
	"github.com/roach88/proofcheck/internal/testutil"
)

// photoShade is the grey level of every synthetic photo. Photos differ by
// width, so their bytes differ.
const photoShade = 128

// fixture is a built photo.
type fixture struct {
	file      proof.File
	data      []byte
	hash      string // empty for missing photos
	watermark string
}

// missingFile cannot be opened.
type missingFile string

func (m missingFile) Name() string { return string(m) }

func (m missingFile) Open() (io.ReadCloser, error) {
	return nil, fmt.Errorf("open %s: %w", string(m), os.ErrNotExist)
}

// buildFixtures renders every declared photo. Concrete photos are built
// in name order so widths, and therefore hashes, are stable.
func buildFixtures(photos map[string]Photo) (map[string]fixture, error) {
	names := make([]string, 0, len(photos))
	for name := range photos {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]fixture, len(photos))
	width := 16
	for _, name := range names {
		p := photos[name]
		if p.SameAs != "" {
			continue
		}
		if p.Missing {
			out[name] = fixture{file: missingFile(name + ".jpg")}
			continue
		}

		data, err := testutil.EncodeJPEG(width, 16, photoShade)
		if err != nil {
			return nil, fmt.Errorf("photos.%s: %w", name, err)
		}
		width++

		if p.ExifOriginal != "" || p.ExifDigitized != "" || p.ExifModified != "" {
			data = testutil.InsertExif(data, testutil.ExifTIFF(testutil.ExifDates{
				RawOriginal:  p.ExifOriginal,
				RawDigitized: p.ExifDigitized,
				RawModified:  p.ExifModified,
			}))
		}

		out[name] = fixture{
			file:      proof.NewBytesFile(name+".jpg", data),
			data:      data,
			hash:      hashing.SumBytes(data),
			watermark: p.Watermark,
		}
	}

	for _, name := range names {
		p := photos[name]
		if p.SameAs == "" {
			continue
		}
		src := out[p.SameAs]
		watermark := src.watermark
		if p.Watermark != "" {
			watermark = p.Watermark
		}
		out[name] = fixture{
			file:      proof.NewBytesFile(name+".jpg", src.data),
			data:      src.data,
			hash:      src.hash,
			watermark: watermark,
		}
	}

	return out, nil
}
