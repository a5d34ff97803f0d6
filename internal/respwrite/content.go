package respwrite

import (
	"regexp"

	"github.com/zmirror/zmirror/internal/config"
	"github.com/zmirror/zmirror/internal/hooks"
	"github.com/zmirror/zmirror/internal/regexlib"
	"github.com/zmirror/zmirror/internal/urlcodec"
)

// RewriteOptions bundles the per-request collaborators
// ResponseContentRewrite needs to run the built-in rewriters.
type RewriteOptions struct {
	Advanced    *regexp.Regexp
	Basic       *regexlib.Basic
	Registry    *hooks.Registry
	Detector    CharsetDetector
	RemoteDomain string
	RemotePath   string
	URLNoScheme  string
}

// ResponseContentRewrite is spec.md §4.E's response_content_rewrite: MIME
// gates whether the body is touched at all, then (for text-like bodies)
// charset detection, optional custom rewriting, the advanced-regex
// path-aware rewrite, the basic-regex bare-reference rewrite, and, for
// text/html, content injection.
func ResponseContentRewrite(cfg *config.Config, mime string, body []byte, opts RewriteOptions) []byte {
	if !isTextLike(mime, cfg.TextLikeMimeTypes) {
		return body
	}

	text, _ := DecodeBody(opts.Detector, cfg.ForceDecodeWithCharsets, cfg.PossibleCharsets, body)

	skipBuiltin := false
	if cfg.CustomTextRewriterEnable && opts.Registry != nil {
		if rw := opts.Registry.TextRewriter(); rw != nil {
			text, skipBuiltin = rw.Rewrite(mime, text)
		}
	}

	if !skipBuiltin {
		text = urlcodec.RegexURLReassemble(cfg, opts.Advanced, opts.RemoteDomain, opts.RemotePath, mime, text)
		text = urlcodec.RewriteRemoteToMirrorURL(cfg, opts.Basic, text)
	}

	if mime == "text/html" {
		text = injectContent(cfg, opts.URLNoScheme, text)
	}

	return EncodeUTF8(text)
}
