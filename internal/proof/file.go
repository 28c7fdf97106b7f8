package proof

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// File is a handle to a submitted image.
//
// Open may be called more than once; each call returns an independent
// reader positioned at the first byte. The pipeline reads the file once for
// hashing and again for each extraction strategy.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// PathFile is a File backed by a path on disk.
type PathFile string

// Name returns the base name of the path.
func (p PathFile) Name() string { return filepath.Base(string(p)) }

// Open opens the file for reading.
func (p PathFile) Open() (io.ReadCloser, error) { return os.Open(string(p)) }

// BytesFile is a File held in memory.
type BytesFile struct {
	Filename string
	Data     []byte
}

// NewBytesFile wraps data as a File.
func NewBytesFile(name string, data []byte) *BytesFile {
	return &BytesFile{Filename: name, Data: data}
}

// Name returns the file name.
func (b *BytesFile) Name() string { return b.Filename }

// Open returns a reader over the in-memory bytes.
func (b *BytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}
