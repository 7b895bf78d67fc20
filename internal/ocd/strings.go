package ocd

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// defaultByteEncoding is the 1-byte text encoding used for names, notes and
// template paths unless the caller overrides it.
var defaultByteEncoding encoding.Encoding = charmap.Windows1252

// defaultWideEncoding is the 2-byte encoding used for object text.
var defaultWideEncoding encoding.Encoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// truncationMarker is appended to overlong strings in warnings to show
// where the cut happened.
const truncationMarker = "|||"

// decodePascalString decodes a length-prefixed string from a fixed-size
// field: one length byte followed by up to len(field)-1 encoded bytes.
func decodePascalString(field []byte, dec encoding.Encoding) (string, error) {
	if len(field) == 0 {
		return "", nil
	}
	n := int(field[0])
	if n > len(field)-1 {
		n = len(field) - 1
	}
	return dec.NewDecoder().String(string(field[1 : 1+n]))
}

// encodePascalString encodes into a fixed-size length-prefixed field,
// truncating if necessary. It returns the encoded field and whether the
// string was cut.
func encodePascalString(s string, size int, enc encoding.Encoding) ([]byte, bool) {
	raw := encodeBytes(s, enc)
	truncated := false
	if len(raw) > size-1 {
		raw = raw[:size-1]
		truncated = true
	}
	field := make([]byte, size)
	field[0] = byte(len(raw))
	copy(field[1:], raw)
	return field, truncated
}

// decodeCString decodes a zero-terminated 1-byte string. Carriage returns
// before line feeds are stripped; files written on Windows carry both.
func decodeCString(data []byte, dec encoding.Encoding) (string, error) {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	s, err := dec.NewDecoder().String(string(data))
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}

// encodeCString encodes a 1-byte string with a zero terminator, expanding
// line feeds to CR-LF pairs.
func encodeCString(s string, enc encoding.Encoding) []byte {
	s = strings.ReplaceAll(s, "\n", "\r\n")
	raw := encodeBytes(s, enc)
	return append(raw, 0)
}

// decodeWideString decodes 2-byte object text. The payload is padded to
// 8-byte units; decoding stops at the first NUL character.
func decodeWideString(data []byte, dec encoding.Encoding) (string, error) {
	s, err := dec.NewDecoder().String(string(data))
	if err != nil {
		return "", err
	}
	if i := strings.IndexRune(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}

// encodeWideString encodes object text with a terminating NUL, padded to a
// multiple of 8 bytes. Line feeds become CR-LF pairs.
func encodeWideString(s string, enc encoding.Encoding) []byte {
	s = strings.ReplaceAll(s, "\n", "\r\n")
	raw := encodeBytes(s+"\x00", enc)
	if pad := len(raw) % 8; pad != 0 {
		raw = append(raw, make([]byte, 8-pad)...)
	}
	return raw
}

// encodeBytes encodes with unsupported characters replaced, never failing:
// a name that cannot be represented still has to be written.
func encodeBytes(s string, enc encoding.Encoding) []byte {
	e := encoding.ReplaceUnsupported(enc.NewEncoder())
	raw, err := e.Bytes([]byte(s))
	if err != nil {
		return []byte{}
	}
	return raw
}

// truncatedForWarning formats the string for a truncation warning, with the
// marker inserted at the cut.
func truncatedForWarning(s string, keep int) string {
	r := []rune(s)
	if keep > len(r) {
		keep = len(r)
	}
	return string(r[:keep]) + truncationMarker + string(r[keep:])
}
