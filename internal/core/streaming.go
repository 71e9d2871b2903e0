package core

// streaming.go provides the reader wrappers applied to staging files before
// CSV parsing:
//
//   - bomSkippingReader: removes a UTF-8 BOM (0xEF 0xBB 0xBF) written by
//     spreadsheet tools that edited the file
//   - CountingReader: tracks bytes read so steps can log file sizes
//
// Invalid UTF-8 is repaired per field after parsing, see sanitizeField.

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newBOMSkippingReader wraps r and drops a leading UTF-8 BOM if present.
func newBOMSkippingReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// wrapStagingReader strips the BOM and counts bytes.
// The counter wraps the raw reader so BytesRead reflects the file size.
func wrapStagingReader(r io.Reader) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r)
	return newBOMSkippingReader(counter), counter
}

// sanitizeField replaces invalid UTF-8 sequences with '?'.
func sanitizeField(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "?")
}
