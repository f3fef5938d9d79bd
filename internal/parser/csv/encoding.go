package csv

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Supported encoding names.
const (
	EncodingLatin1      = "latin1"
	EncodingWindows1252 = "windows1252"
	EncodingUTF8        = "utf8"
)

// LookupEncoding resolves an encoding name. The empty name means Latin-1,
// which is what the Ergast CSV dump uses.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "")) {
	case "", EncodingLatin1, "iso88591", "l1":
		return charmap.ISO8859_1, nil
	case EncodingWindows1252, "cp1252":
		return charmap.Windows1252, nil
	case EncodingUTF8:
		return unicode.UTF8, nil
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", name)
	}
}

// NewDecodingReader wraps r so that reads yield UTF-8 decoded from the named
// encoding.
func NewDecodingReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
