// Package testutil provides clocks and synthetic image fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"testing"
	"time"
)

// EXIF tag numbers used by the fixtures.
const (
	TagDateTime          uint16 = 0x0132
	TagExifIFDPointer    uint16 = 0x8769
	TagDateTimeOriginal  uint16 = 0x9003
	TagDateTimeDigitized uint16 = 0x9004
)

// ExifDates selects which capture fields a fixture carries. Zero values are
// omitted. Raw values, when set, are written verbatim instead.
type ExifDates struct {
	Original  time.Time
	Digitized time.Time
	Modified  time.Time

	RawOriginal  string
	RawDigitized string
	RawModified  string
}

const exifLayout = "2006:01:02 15:04:05"

// PlainJPEG encodes a w by h mid-grey JPEG without metadata.
func PlainJPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	data, err := EncodeJPEG(w, h, 128)
	if err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return data
}

// EncodeJPEG encodes a w by h uniform grey JPEG without metadata. Distinct
// shades give distinct bytes.
func EncodeJPEG(w, h int, shade uint8) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), color.RGBA{R: shade, G: shade, B: shade, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JPEGWithExif returns a decodable JPEG carrying an EXIF APP1 segment with
// the requested dates.
func JPEGWithExif(t testing.TB, dates ExifDates) []byte {
	t.Helper()
	return InsertExif(PlainJPEG(t, 16, 16), ExifTIFF(dates))
}

// InsertExif splices an APP1 "Exif" segment holding tiff right after the
// JPEG start-of-image marker.
func InsertExif(jpg, tiff []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiff...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := make([]byte, 0, len(jpg)+len(seg))
	out = append(out, jpg[:2]...)
	out = append(out, seg...)
	out = append(out, jpg[2:]...)
	return out
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte // ASCII payload or 4-byte inline value
}

// ExifTIFF builds a little-endian TIFF structure with IFD0 and an Exif
// sub-IFD.
func ExifTIFF(dates ExifDates) []byte {
	ascii := func(tag uint16, s string) ifdEntry {
		v := append([]byte(s), 0)
		return ifdEntry{tag: tag, typ: 2, count: uint32(len(v)), value: v}
	}
	stamp := func(t time.Time) string { return t.Format(exifLayout) }

	var ifd0, sub []ifdEntry
	switch {
	case dates.RawModified != "":
		ifd0 = append(ifd0, ascii(TagDateTime, dates.RawModified))
	case !dates.Modified.IsZero():
		ifd0 = append(ifd0, ascii(TagDateTime, stamp(dates.Modified)))
	}
	switch {
	case dates.RawOriginal != "":
		sub = append(sub, ascii(TagDateTimeOriginal, dates.RawOriginal))
	case !dates.Original.IsZero():
		sub = append(sub, ascii(TagDateTimeOriginal, stamp(dates.Original)))
	}
	switch {
	case dates.RawDigitized != "":
		sub = append(sub, ascii(TagDateTimeDigitized, dates.RawDigitized))
	case !dates.Digitized.IsZero():
		sub = append(sub, ascii(TagDateTimeDigitized, stamp(dates.Digitized)))
	}
	// Pointer value is patched once offsets are known.
	ifd0 = append(ifd0, ifdEntry{tag: TagExifIFDPointer, typ: 4, count: 1, value: make([]byte, 4)})

	sort.Slice(ifd0, func(i, j int) bool { return ifd0[i].tag < ifd0[j].tag })
	sort.Slice(sub, func(i, j int) bool { return sub[i].tag < sub[j].tag })

	ifdSize := func(n int) int { return 2 + 12*n + 4 }
	ifd0Off := 8
	subOff := ifd0Off + ifdSize(len(ifd0))
	dataOff := subOff + ifdSize(len(sub))

	for i := range ifd0 {
		if ifd0[i].tag == TagExifIFDPointer {
			binary.LittleEndian.PutUint32(ifd0[i].value, uint32(subOff))
		}
	}

	le := binary.LittleEndian
	var data []byte
	writeIFD := func(buf []byte, entries []ifdEntry) []byte {
		buf = le.AppendUint16(buf, uint16(len(entries)))
		for _, e := range entries {
			buf = le.AppendUint16(buf, e.tag)
			buf = le.AppendUint16(buf, e.typ)
			buf = le.AppendUint32(buf, e.count)
			if len(e.value) <= 4 {
				v := make([]byte, 4)
				copy(v, e.value)
				buf = append(buf, v...)
				continue
			}
			buf = le.AppendUint32(buf, uint32(dataOff+len(data)))
			data = append(data, e.value...)
		}
		return le.AppendUint32(buf, 0)
	}

	out := []byte{'I', 'I', 42, 0}
	out = le.AppendUint32(out, uint32(ifd0Off))
	out = writeIFD(out, ifd0)
	out = writeIFD(out, sub)
	return append(out, data...)
}

// Watermarked renders a w by h dark PNG with a light rectangle covering
// mark. A recogniser fake can treat any white pixel after thresholding as
// "text present".
func Watermarked(t testing.TB, w, h int, mark image.Rectangle) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), color.RGBA{R: 40, G: 40, B: 40, A: 255})
	fill(img, mark.Intersect(img.Bounds()), color.RGBA{R: 235, G: 235, B: 235, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

// HasWhite reports whether any pixel of img is pure white.
func HasWhite(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y == 255 {
				return true
			}
		}
	}
	return false
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
