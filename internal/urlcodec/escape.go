package urlcodec

import "strings"

// jsonEscapeReplacer/jsonUnescapeReplacer handle the narrow JSON-escaping
// transform the spec calls out for decode_mirror_url: `\/` for `/` and `\.`
// for `.`. Only these two are reversed here; general JSON string escaping
// is out of scope — callers operate one path segment at a time.
var (
	jsonUnescapeReplacer = strings.NewReplacer(`\/`, "/", `\.`, ".")
	jsonEscapeReplacer   = strings.NewReplacer("/", `\/`, ".", `\.`)
)

// unescapeJSON reverses the narrow `\/`/`\.` JSON escaping if present,
// reporting whether it found any to reverse.
func unescapeJSON(s string) (unescaped string, wasEscaped bool) {
	if strings.Contains(s, `\/`) || strings.Contains(s, `\.`) {
		return jsonUnescapeReplacer.Replace(s), true
	}
	return s, false
}

// reescapeJSON reapplies the `\/`/`\.` JSON escaping.
func reescapeJSON(s string) string {
	return jsonEscapeReplacer.Replace(s)
}

// GuessColonFromSlash picks the colon glyph form that matches the escape
// depth of a captured slash glyph, so a rewritten URL's scheme separator
// never looks more (or less) escaped than the slashes around it
// (spec.md §4.B): raw ⇒ ":", "%2F"/"%2f" ⇒ "%3A"/"%3a", double-encoded ⇒
// "%253A"/"%253a".
func GuessColonFromSlash(slashGlyph string) string {
	switch slashGlyph {
	case "/":
		return ":"
	case "%2F":
		return "%3A"
	case "%2f":
		return "%3a"
	case "%252F":
		return "%253A"
	case "%252f":
		return "%253a"
	case `\/`:
		return `\:`
	case `\x2F`, `\x2f`:
		return `\x3A`
	default:
		return ":"
	}
}
