package capture

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/roach88/proofcheck/internal/proof"
)

// Field names a capture-time metadata field.
type Field string

const (
	FieldDateTimeOriginal  Field = "DateTimeOriginal"
	FieldCreateDate        Field = "CreateDate"
	FieldDateTimeDigitized Field = "DateTimeDigitized"
	FieldModifyDate        Field = "ModifyDate"
)

// FieldPriority is the order metadata fields are consulted in.
var FieldPriority = []Field{
	FieldDateTimeOriginal,
	FieldCreateDate,
	FieldDateTimeDigitized,
	FieldModifyDate,
}

// MetadataReader reads date-typed capture fields from an image container.
// Fields that are absent or not valid dates are left out of the map.
type MetadataReader interface {
	CaptureFields(r io.Reader) (map[Field]time.Time, error)
}

// MetadataExtractor is the metadata Strategy.
type MetadataExtractor struct {
	reader MetadataReader
}

// NewMetadataExtractor creates a metadata strategy over reader.
func NewMetadataExtractor(reader MetadataReader) *MetadataExtractor {
	return &MetadataExtractor{reader: reader}
}

// Name implements Strategy.
func (m *MetadataExtractor) Name() string { return string(proof.SourceMetadata) }

// Extract returns the highest-priority field present.
func (m *MetadataExtractor) Extract(ctx context.Context, f proof.File) (proof.CaptureTime, bool) {
	rc, err := f.Open()
	if err != nil {
		slog.Debug("metadata: open failed", "file", f.Name(), "error", err)
		return proof.CaptureTime{}, false
	}
	defer rc.Close()

	fields, err := m.reader.CaptureFields(rc)
	if err != nil {
		slog.Debug("metadata: no readable container", "file", f.Name(), "error", err)
		return proof.CaptureTime{}, false
	}
	for _, name := range FieldPriority {
		if t, ok := fields[name]; ok && !t.IsZero() {
			return proof.CaptureTime{At: t, Source: proof.SourceMetadata, Detail: string(name)}, true
		}
	}
	return proof.CaptureTime{}, false
}

// exifLayout is the EXIF date format. It carries no zone.
const exifLayout = "2006:01:02 15:04:05"

// exifTags maps capture fields onto EXIF tags. EXIF stores the creation
// and digitisation time in the same tag (0x9004).
var exifTags = map[Field]exif.FieldName{
	FieldDateTimeOriginal:  exif.DateTimeOriginal,
	FieldCreateDate:        exif.DateTimeDigitized,
	FieldDateTimeDigitized: exif.DateTimeDigitized,
	FieldModifyDate:        exif.DateTime,
}

// ExifReader is the goexif-backed MetadataReader.
//
// EXIF timestamps have no zone; they are interpreted in Location, or
// time.Local when Location is nil.
type ExifReader struct {
	Location *time.Location
}

// CaptureFields implements MetadataReader.
func (e ExifReader) CaptureFields(r io.Reader) (map[Field]time.Time, error) {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, err
	}

	loc := e.Location
	if loc == nil {
		loc = time.Local
	}

	fields := make(map[Field]time.Time, len(exifTags))
	for field, tag := range exifTags {
		t, ok := exifTime(x, tag, loc)
		if ok {
			fields[field] = t
		}
	}
	return fields, nil
}

func exifTime(x *exif.Exif, tag exif.FieldName, loc *time.Location) (time.Time, bool) {
	f, err := x.Get(tag)
	if err != nil {
		return time.Time{}, false
	}
	s, err := f.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	s = strings.TrimRight(strings.TrimSpace(s), "\x00")
	t, err := time.ParseInLocation(exifLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
