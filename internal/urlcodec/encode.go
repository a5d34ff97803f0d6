package urlcodec

import (
	"strings"

	"github.com/zmirror/zmirror/internal/config"
)

// EncodeOptions controls how EncodeMirrorURL reconstructs scheme and
// escaping in its output.
type EncodeOptions struct {
	// OriginDomain is the host the URL names; if empty, cfg.TargetDomain is
	// assumed (a same-origin relative reference).
	OriginDomain string
	// HasScheme is false for scheme-relative/relative references, in which
	// case no scheme is emitted even for a main-domain rewrite.
	HasScheme bool
	// SchemeRelative is true for "//host/path" references: the scheme is
	// omitted but the authority is still rewritten.
	SchemeRelative bool
	// Escaped reapplies the narrow JSON `\/`/`\.` escaping on output.
	Escaped bool
}

// EncodeMirrorURL maps an origin-space URL back into mirror-space
// (spec.md §4.B). originPath carries the path[?query][#frag] portion.
func EncodeMirrorURL(cfg *config.Config, originPath string, opts EncodeOptions) string {
	if strings.HasPrefix(originPath, "/extdomains/") {
		return originPath
	}

	domain := opts.OriginDomain
	if domain == "" {
		domain = cfg.TargetDomain
	}
	if !cfg.IsAllowedDomain(domain) {
		return originPath
	}

	var scheme string
	switch {
	case opts.SchemeRelative:
		scheme = "//" + cfg.MyHost()
	case opts.HasScheme:
		scheme = cfg.MyScheme + cfg.MyHost()
	default:
		scheme = ""
	}

	var out string
	if cfg.IsExternalDomain(domain) {
		out = scheme + "/extdomains/" + domain + originPath
	} else {
		out = scheme + originPath
	}

	if opts.Escaped {
		out = reescapeJSON(out)
	}
	return out
}
