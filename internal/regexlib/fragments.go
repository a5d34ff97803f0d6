// Package regexlib compiles the escape-tolerant pattern family used to find
// and rewrite upstream URL references inside request/response text: the
// COLON/SLASH/QUOTE escape fragments, the advanced and basic URL patterns,
// the ext-domains and main-domain patterns, and the cookie/verify-header
// patterns (spec.md §4.A).
//
// None of these patterns use backreferences: Go's regexp package is backed
// by RE2, which does not support them. The two slashes after a scheme are
// therefore matched independently, and a match may mix escape forms (for
// example "/" followed by "%2F"). Only the first one is captured
// (scheme_slash); internal/urlcodec reuses that form for both output
// slashes and does not compare it with the second.
package regexlib

import "regexp"

// Escape fragments for ':', '/' and the quote characters, covering the raw
// glyph, single percent-encoding, double percent-encoding, JSON backslash
// escaping, and the HTML entity form of the quote. Each is wrapped in a
// non-capturing group so it can be embedded inside larger patterns.
const (
	colonFragmentSrc = `(?::|%3[Aa]|%253[Aa]|\\u003[Aa])`
	slashFragmentSrc = `(?:/|%2[Ff]|%252[Ff]|\\/|\\x2[Ff])`
	quoteFragmentSrc = `(?:'|"|%2[27]|%252[27]|&quot;)`

	// backslashRunSrc absorbs arbitrary layers of JSON/URL double-escaping
	// (runs of the percent-encoded backslash) immediately before a colon or
	// slash fragment, so deeply nested escaping still matches.
	backslashRunSrc = `(?:%5[Cc])*`
)

var (
	// Colon matches any escaped form of ':'.
	Colon = regexp.MustCompile(backslashRunSrc + colonFragmentSrc)
	// Slash matches any escaped form of '/'.
	Slash = regexp.MustCompile(backslashRunSrc + slashFragmentSrc)
	// Quote matches any escaped form of a single or double quote.
	Quote = regexp.MustCompile(backslashRunSrc + quoteFragmentSrc)
)
