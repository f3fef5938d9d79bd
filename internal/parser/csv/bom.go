package csv

import "strings"

const utf8BOM = "\uFEFF"

// StripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
// Latin-1 decoding turns a raw BOM into three Latin-1 characters, so that form is stripped too.
func StripHeaderBOM(headers []string) []string {
	if len(headers) == 0 {
		return headers
	}
	headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	headers[0] = strings.TrimPrefix(headers[0], "\u00ef\u00bb\u00bf")
	return headers
}
