// Package source normalizes raw script bytes into the UTF-8 text the lexer
// consumes. Hosts may hand the engine UTF-8 (with or without BOM) or UTF-16
// in either byte order; everything is transcoded up front so the lexer only
// ever sees valid UTF-8.
package source

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts raw source bytes to a UTF-8 string. UTF-16 input is
// detected by BOM; a UTF-8 BOM is stripped. Input without a BOM is assumed
// to be UTF-8.
func Decode(raw []byte) (string, error) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}):
		return string(raw[3:]), nil
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}), bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, raw)
		if err != nil {
			return "", fmt.Errorf("source: invalid UTF-16 input: %w", err)
		}
		return string(out), nil
	default:
		return string(raw), nil
	}
}

// DecodeString normalizes a string that may carry a UTF-8 BOM.
func DecodeString(s string) string {
	if len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF {
		return s[3:]
	}
	return s
}
