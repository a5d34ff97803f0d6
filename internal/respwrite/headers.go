package respwrite

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/zmirror/zmirror/internal/config"
	"github.com/zmirror/zmirror/internal/hooks"
	"github.com/zmirror/zmirror/internal/regexlib"
	"github.com/zmirror/zmirror/internal/urlcodec"
)

// droppedResponseHeaders are never forwarded: the mirror handles CORS
// itself (spec.md §4.E).
var droppedResponseHeaders = map[string]struct{}{
	"access-control-allow-origin": {},
	"timing-allow-origin":         {},
}

// Version is the build identifier reported in X-Powered-By.
const Version = "dev"

// HeaderRewriteOptions bundles the collaborators RewriteRespHeaders needs.
type HeaderRewriteOptions struct {
	Registry         *hooks.Registry
	OriginDomain     string
	HeaderReqTime    string
	BodyReqTime      string // empty for streamed responses
	ComputeTime      string
}

// RewriteRespHeaders whitelist-filters upstream headers by
// allowed_remote_response_headers, special-cases Location/Content-Type/
// Set-Cookie/CORS headers, and appends the mirror's own timing and
// identification headers (spec.md §4.E).
func RewriteRespHeaders(cfg *config.Config, upstream http.Header, opts HeaderRewriteOptions) http.Header {
	out := make(http.Header)
	allowed := make(map[string]struct{}, len(cfg.AllowedRemoteRespHeaders))
	for _, h := range cfg.AllowedRemoteRespHeaders {
		allowed[strings.ToLower(h)] = struct{}{}
	}

	for name, values := range upstream {
		lower := strings.ToLower(name)
		if _, dropped := droppedResponseHeaders[lower]; dropped {
			continue
		}

		switch lower {
		case "location":
			for _, v := range values {
				out.Add(name, rewriteLocation(cfg, opts.Registry, opts.OriginDomain, v))
			}
			continue
		case "set-cookie":
			for _, v := range values {
				out.Add(name, rewriteSetCookie(cfg, v))
			}
			continue
		case "content-type":
			for _, v := range values {
				out.Add(name, ensureUTF8ContentType(cfg, v))
			}
			continue
		}

		if _, ok := allowed[lower]; !ok {
			continue
		}
		for _, v := range values {
			out.Add(name, v)
		}
	}

	out.Set("X-Header-Req-Time", opts.HeaderReqTime)
	if opts.BodyReqTime != "" {
		out.Set("X-Body-Req-Time", opts.BodyReqTime)
	}
	out.Set("X-Compute-Time", opts.ComputeTime)
	out.Set("X-Powered-By", "zmirror/"+Version)

	return out
}

func rewriteLocation(cfg *config.Config, registry *hooks.Registry, originDomain, location string) string {
	text := location
	skip := false
	if cfg.CustomTextRewriterEnable && registry != nil {
		if rw := registry.TextRewriter(); rw != nil {
			text, skip = rw.Rewrite("mwm/headers-location", text)
		}
	}
	if skip {
		return text
	}

	parsed, err := url.Parse(text)
	if err != nil {
		return text
	}

	domain := originDomain
	hasScheme := parsed.Scheme != ""
	schemeRelative := false
	if parsed.Host != "" {
		domain = parsed.Hostname()
		schemeRelative = !hasScheme
	}

	pathQuery := parsed.Path
	if parsed.RawQuery != "" {
		pathQuery += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		pathQuery += "#" + parsed.Fragment
	}

	return urlcodec.EncodeMirrorURL(cfg, pathQuery, urlcodec.EncodeOptions{
		OriginDomain:   domain,
		HasScheme:      hasScheme,
		SchemeRelative: schemeRelative,
	})
}

// rewriteSetCookie rewrites the domain= attribute to the mirror host and,
// over a plaintext mirror, strips the Secure attribute so browsers don't
// silently drop the cookie (spec.md §9 Open Question resolution: the
// half-written response_cookie_rewrite pair is implemented as
// domain-rewrite-plus-conditional-Secure-strip).
func rewriteSetCookie(cfg *config.Config, rawCookie string) string {
	rewritten := regexlib.CookieDomain.ReplaceAllStringFunc(rawCookie, func(match string) string {
		groups := regexlib.CookieDomain.FindStringSubmatch(match)
		if groups == nil {
			return match
		}
		return "domain=" + cfg.MyHostName
	})

	if cfg.MyScheme != "https://" {
		rewritten = stripSecureAttribute(rewritten)
	}
	return rewritten
}

var secureAttrRe = regexp.MustCompile(`(?i)\s*;\s*Secure\b`)

func stripSecureAttribute(cookie string) string {
	return secureAttrRe.ReplaceAllString(cookie, "")
}

func ensureUTF8ContentType(cfg *config.Config, contentType string) string {
	lower := strings.ToLower(contentType)
	if isTextLike(mimeOf(contentType), cfg.TextLikeMimeTypes) && !strings.Contains(lower, "utf-8") {
		return contentType + "; charset=utf-8"
	}
	return contentType
}
