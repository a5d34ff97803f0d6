package config

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// normalizeHost lower-cases and ASCII-folds a hostname (via IDNA) so that
// punycode and mixed-case upstream hosts compare equal to their canonical
// form, per SPEC_FULL §3's hostname-normalization note.
func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, ".")
	if ascii, err := idna.Lookup.ToASCII(h); err == nil {
		return ascii
	}
	return h
}

// stripPort returns host without a trailing ":port", if present.
func stripPort(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

// buildDerivedSets computes allowed_domains, the alias set, the external
// domain set, and the force-https set from the configured fields, per the
// invariant in spec.md §3:
//
//	allowed_domains = {target_domain} ∪ target_domain_alias ∪
//	                   external_domains ∪ hostname(external_domains)
//
// This runs once, at load time; the result is immutable for the lifetime of
// the returned *Config.
func (c *Config) buildDerivedSets() {
	c.allowedDomains = make(map[string]struct{})
	c.aliasSet = make(map[string]struct{})
	c.externalDomainSet = make(map[string]struct{})
	c.forceHTTPSSet = make(map[string]struct{})

	add := func(set map[string]struct{}, host string) {
		if host == "" {
			return
		}
		set[normalizeHost(host)] = struct{}{}
	}

	add(c.allowedDomains, c.TargetDomain)
	// target_domain may carry an explicit port (e.g. in local/test
	// deployments); the SSRF gate always checks url.Hostname(), which never
	// includes one, so the bare form must be allowed too.
	add(c.allowedDomains, stripPort(c.TargetDomain))

	for _, alias := range c.TargetDomainAlias {
		add(c.aliasSet, alias)
		add(c.allowedDomains, alias)
		add(c.allowedDomains, stripPort(alias))
	}
	// target_domain_alias setter semantics (spec.md §9 Open Question):
	// target_domain is always a member of its own alias set.
	add(c.aliasSet, c.TargetDomain)
	add(c.aliasSet, stripPort(c.TargetDomain))

	for _, ext := range c.ExternalDomains {
		add(c.externalDomainSet, ext)
		add(c.allowedDomains, ext)
		// hostname(external_domains): external_domains entries may carry a
		// scheme/port; also register the bare hostname form.
		add(c.allowedDomains, stripPort(stripScheme(ext)))
	}

	for _, d := range c.ForceHTTPSDomains {
		add(c.forceHTTPSSet, d)
	}
}

// AllowedDomains returns the allowed_domains set as a slice, in no
// particular order. Used to build the basic URL regex's TLD alternation
// (spec.md §4.A).
func (c *Config) AllowedDomains() []string {
	out := make([]string, 0, len(c.allowedDomains))
	for d := range c.allowedDomains {
		out = append(out, d)
	}
	return out
}

func stripScheme(s string) string {
	if i := strings.Index(s, "://"); i >= 0 {
		return s[i+3:]
	}
	return s
}
