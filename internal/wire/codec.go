package wire

import (
	"fmt"
	"unicode/utf16"
)

// normalizeString decodes raw string bytes per their codec tag into UTF-8,
// matching spec.md §6 ("codec tag ... always normalized to UTF-8 on read").
func normalizeString(codec StringCodec, raw []byte) (string, error) {
	switch codec {
	case CodecUTF8:
		return string(raw), nil
	case CodecAnsiLatin1:
		// Each byte is a Latin-1 code point; widen directly to runes.
		runes := make([]rune, len(raw))
		for i, b := range raw {
			runes[i] = rune(b)
		}
		return string(runes), nil
	case CodecUTF16LE:
		if len(raw)%2 != 0 {
			return "", fmt.Errorf("utf-16le string has odd byte length %d", len(raw))
		}
		units := make([]uint16, len(raw)/2)
		for i := range units {
			units[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
		}
		return string(utf16.Decode(units)), nil
	default:
		return "", fmt.Errorf("unknown string codec tag %d", codec)
	}
}
