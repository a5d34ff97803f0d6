package regexlib

import "regexp"

// BuildExtDomains matches `[[http(s):]//]mirror_host/extdomains/[https-]<host>`
// in every escaped form; the scheme prefix is optional, so a scheme-less
// `mirror_host/extdomains/...` matches too (spec.md §4.A). The mirror host
// alone, without `/extdomains/`, does not match. Named groups: scheme,
// https_flag, domain.
func BuildExtDomains(mirrorHost string) *regexp.Regexp {
	host := regexp.QuoteMeta(mirrorHost)
	pattern := `(?:(?P<scheme>https?)` + colonFragmentSrc + slashFragmentSrc + slashFragmentSrc + `)?` +
		host +
		slashFragmentSrc + `extdomains` + slashFragmentSrc +
		`(?:(?P<https_flag>https-))?` +
		`(?P<domain>[a-zA-Z0-9.-]+)`
	return regexp.MustCompile(pattern)
}

// BuildMainDomain matches `mirror_host[:port]` standalone.
func BuildMainDomain(mirrorHost string) *regexp.Regexp {
	host := regexp.QuoteMeta(mirrorHost)
	pattern := host + `(?:` + colonFragmentSrc + `(?P<port>[0-9]+))?`
	return regexp.MustCompile(pattern)
}
