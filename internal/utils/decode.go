package utils

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextDecoder returns a reader that yields valid UTF-8 from r. The decoder
// keeps state across reads: a multi-byte sequence split over two network
// chunks is held back until its remaining bytes arrive, so the concatenation
// of everything read equals the decoded stream. Invalid sequences are replaced
// with U+FFFD.
func NewTextDecoder(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8.NewDecoder())
}
