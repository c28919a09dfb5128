package core

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader decodes delimited text to UTF-8.
//
// Spreadsheet tools save CSV as UTF-8 with a byte order mark, or as UTF-16
// with one. A leading UTF-8, UTF-16LE or UTF-16BE BOM selects the decoder
// and is dropped; input without a BOM is read as UTF-8. Invalid UTF-8
// sequences become U+FFFD.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
