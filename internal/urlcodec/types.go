// Package urlcodec translates between mirror-space URLs (what the client
// sees) and origin-space URLs (what the upstream serves), including the
// /extdomains/<host>/… encoding used for allied external domains and its
// URL-encoded / JSON-escaped variants (spec.md §4.B).
package urlcodec

import "fmt"

// Decoded is the result of decoding a mirror-space URL (or path) back into
// origin-space coordinates.
type Decoded struct {
	Domain    string
	IsHTTPS   bool
	Path      string
	PathQuery string
}

// Scheme returns "https://" or "http://" for d.
func (d Decoded) Scheme() string {
	if d.IsHTTPS {
		return "https://"
	}
	return "http://"
}

// OriginURL returns the fully assembled origin-space URL.
func (d Decoded) OriginURL() string {
	return fmt.Sprintf("%s%s%s", d.Scheme(), d.Domain, d.PathQuery)
}
