package respwrite

import (
	"bytes"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// CharsetDetector resolves a named charset to a decoder. The default
// implementation below wraps golang.org/x/net/html/charset and
// golang.org/x/text/encoding, which the spec leaves as a pluggable
// "bytes → encoding?" collaborator (spec.md §1).
type CharsetDetector interface {
	Decode(name string, body []byte) (text string, ok bool)
}

type defaultDetector struct{}

// DefaultCharsetDetector is the built-in charset resolver.
var DefaultCharsetDetector CharsetDetector = defaultDetector{}

func (defaultDetector) Decode(name string, body []byte) (string, bool) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		enc, err = charset.Lookup(name)
		if err != nil {
			return "", false
		}
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// DecodeBody tries force_decode_with_charsets first, then each of
// possible_charsets in order; the first charset that decodes cleanly wins.
// If none succeed, it falls back to utf-8 (spec.md §4.E).
func DecodeBody(detector CharsetDetector, forceCharsets, possibleCharsets []string, body []byte) (text, usedCharset string) {
	for _, name := range forceCharsets {
		if t, ok := detector.Decode(name, body); ok {
			return t, name
		}
	}
	for _, name := range possibleCharsets {
		if t, ok := detector.Decode(name, body); ok {
			return t, name
		}
	}
	return string(bytes.ToValidUTF8(body, []byte("�"))), "utf-8"
}

// EncodeUTF8 re-encodes text to UTF-8 bytes for the outgoing body. Every
// decoder above already produces Go's native UTF-8 strings, so this is an
// identity conversion kept as its own step to mirror the spec's explicit
// "encode back to UTF-8" stage.
func EncodeUTF8(text string) []byte {
	return []byte(text)
}
