package core

// streaming.go normalises CSV input as it is read.
//
// Uploaded files and fetched sheets share the same problems:
//
//   - A UTF-8 BOM written by spreadsheet tools on Windows
//   - Invalid UTF-8 from files saved in a legacy encoding
//   - Files far larger than any real shopping list
//
// WrapForStreaming applies the fixes without buffering the whole input.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxCSVBytes bounds uploads and fetched sheets.
const DefaultMaxCSVBytes = 10 << 20

// NewSanitizingReader strips a leading UTF-8 BOM and replaces invalid UTF-8
// sequences with U+FFFD.
func NewSanitizingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// SizeLimitedReader fails with ErrFileTooLarge once more than Max bytes have
// been read.
type SizeLimitedReader struct {
	reader    io.Reader
	Max       int64
	BytesRead int64
}

// NewSizeLimitedReader wraps r. A non-positive max disables the limit.
func NewSizeLimitedReader(r io.Reader, max int64) *SizeLimitedReader {
	return &SizeLimitedReader{reader: r, Max: max}
}

// Read implements io.Reader.
func (r *SizeLimitedReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Max > 0 && r.BytesRead > r.Max {
		return n, ErrFileTooLarge
	}
	return n, err
}

// WrapForStreaming limits the raw input to maxBytes, then strips the BOM
// and sanitizes the encoding.
func WrapForStreaming(r io.Reader, maxBytes int64) io.Reader {
	return NewSanitizingReader(NewSizeLimitedReader(r, maxBytes))
}
