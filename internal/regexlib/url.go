package regexlib

import (
	"regexp"
	"sort"
	"strings"
)

// Advanced is the "URL (advanced)" pattern of spec.md §4.A: it locates
// candidate URLs inside text bodies, anchored on a prefix token, an
// optional left quote, an optional scheme+authority group, a path, an
// optional query, a mandatory right delimiter, and a non-word suffix.
//
// Named groups: prefix, quote_left, scheme, scheme_slash, domain, port,
// path, query_string, quote_right, right_suffix.
var Advanced = regexp.MustCompile(
	`(?P<prefix>src=|href=|action=|url\(|@import|"` + colonFragmentSrc + `)` +
		`(?P<quote_left>` + quoteFragmentSrc + `)?` +
		`(?:(?P<scheme>https?)` + colonFragmentSrc + `(?P<scheme_slash>` + slashFragmentSrc + `)` + slashFragmentSrc + `)?` +
		`(?P<domain>[a-zA-Z0-9.-]+)?` +
		`(?:` + colonFragmentSrc + `(?P<port>[0-9]+))?` +
		`(?P<path>` + slashFragmentSrc + `[^'"\s)>]*)?` +
		`(?:\?(?P<query_string>[^'"\s)>]*))?` +
		`(?P<quote_right>` + quoteFragmentSrc + `|\))?` +
		`(?P<right_suffix>\W|$)`,
)

// Basic matches a bare scheme://host reference with no path: it is built
// from the same fragments with a trailing TLD alternation assembled from
// the active allowed_domains set, most common TLD first, so the regex
// engine's alternation order favors the domains actually in play.
type Basic struct {
	*regexp.Regexp
}

// BuildBasic compiles the Basic URL regex for the given set of allowed
// hostnames (spec.md: "trailing TLD alternation built from allowed_domains,
// sorted by frequency"). It is rebuilt whenever the domain set changes
// (i.e. on every config reload), never mutated in place.
func BuildBasic(allowedDomains []string) *Basic {
	tlds := tldFrequencyOrder(allowedDomains)
	tldAlt := strings.Join(quoteAllLiteral(tlds), "|")
	if tldAlt == "" {
		tldAlt = `[a-zA-Z]{2,}`
	}

	pattern := `(?P<scheme>https?)` + colonFragmentSrc + `(?P<scheme_slash>` + slashFragmentSrc + `)` + slashFragmentSrc +
		`(?P<domain>[a-zA-Z0-9.-]+\.(?:` + tldAlt + `))` +
		`(?:` + colonFragmentSrc + `(?P<port>[0-9]+))?`

	return &Basic{Regexp: regexp.MustCompile(pattern)}
}

// tldFrequencyOrder extracts the TLD (last label) of every host, counts
// occurrences, and returns distinct TLDs ordered most-frequent first, then
// alphabetically for stability.
func tldFrequencyOrder(hosts []string) []string {
	counts := make(map[string]int)
	for _, h := range hosts {
		labels := strings.Split(strings.TrimSuffix(h, "."), ".")
		if len(labels) < 2 {
			continue
		}
		tld := labels[len(labels)-1]
		counts[tld]++
	}

	tlds := make([]string, 0, len(counts))
	for t := range counts {
		tlds = append(tlds, t)
	}
	sort.Slice(tlds, func(i, j int) bool {
		if counts[tlds[i]] != counts[tlds[j]] {
			return counts[tlds[i]] > counts[tlds[j]]
		}
		return tlds[i] < tlds[j]
	})
	return tlds
}

func quoteAllLiteral(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = regexp.QuoteMeta(s)
	}
	return out
}
