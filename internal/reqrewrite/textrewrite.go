package reqrewrite

import (
	"strings"

	"github.com/zmirror/zmirror/internal/config"
	"github.com/zmirror/zmirror/internal/regexlib"
)

// ClientRequestsTextRewrite translates mirror-space domain references
// inside an outbound (client → upstream) header value back into
// origin-space, in three passes (spec.md §4.C):
//  1. ext-domains: /extdomains/<host> → <host>, with scheme chosen from the
//     captured https- flag or force_https_domains policy.
//  2. main-domain: bare mirror_host[:port] → target_domain.
//  3. A belt-and-braces plain-string replacement of my_host_name →
//     target_domain, in case either regex missed an occurrence.
func ClientRequestsTextRewrite(cfg *config.Config, text string) string {
	extDomains := regexlib.BuildExtDomains(cfg.MyHost())
	names := extDomains.SubexpNames()

	text = extDomains.ReplaceAllStringFunc(text, func(match string) string {
		groups := extDomains.FindStringSubmatch(match)
		if groups == nil {
			return match
		}
		get := func(name string) string {
			for i, n := range names {
				if n == name {
					return groups[i]
				}
			}
			return ""
		}

		domain := get("domain")
		isHTTPS := get("https_flag") != ""
		if !isHTTPS {
			isHTTPS = cfg.ShouldForceHTTPS(domain)
		}
		scheme := "http"
		if isHTTPS {
			scheme = "https"
		}
		return scheme + "://" + domain
	})

	mainDomain := regexlib.BuildMainDomain(cfg.MyHost())
	text = mainDomain.ReplaceAllString(text, cfg.TargetDomain)

	text = strings.ReplaceAll(text, cfg.MyHostName, cfg.TargetDomain)

	return text
}
