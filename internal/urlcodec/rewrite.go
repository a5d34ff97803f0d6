package urlcodec

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/zmirror/zmirror/internal/config"
	"github.com/zmirror/zmirror/internal/regexlib"
)

// RewriteRemoteToMirrorURL applies the Basic URL regex to text and rewrites
// each bare scheme://host reference to mirror-space, preserving the escape
// depth the source used for scheme separator and slashes (spec.md §4.B).
func RewriteRemoteToMirrorURL(cfg *config.Config, basic *regexlib.Basic, text string) string {
	names := basic.SubexpNames()

	return basic.ReplaceAllStringFunc(text, func(match string) string {
		groups := basic.FindStringSubmatch(match)
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
		if !cfg.IsAllowedDomain(domain) {
			return match
		}

		schemeSlash := get("scheme_slash")
		colon := GuessColonFromSlash(schemeSlash)
		slashes := schemeSlash + schemeSlash

		port := get("port")
		portSuffix := ""
		if port != "" {
			portSuffix = colon + port
		}

		var host string
		if cfg.IsExternalDomain(domain) {
			host = cfg.MyHost() + "/extdomains/" + domain
		} else {
			host = cfg.MyHost()
		}

		return get("scheme") + colon + slashes + host + portSuffix
	})
}

// reassembleInput is the parsed shape the advanced URL regex produces for
// one candidate match.
type reassembleInput struct {
	prefix      string
	quoteLeft   string
	scheme      string
	schemeSlash string
	domain      string
	port        string
	path        string
	query       string
	quoteRight  string
	rightSuffix string
}

// RegexURLReassemble is the heavier, path-aware rewriter invoked via the
// advanced URL regex over response bodies (spec.md §4.B). remoteDomain and
// remotePath describe the response's own URL, used to resolve relative
// references, and mime gates the JavaScript no-scheme-quoted-prefix
// drop rule.
func RegexURLReassemble(cfg *config.Config, advanced *regexp.Regexp, remoteDomain, remotePath, mime, text string) string {
	names := advanced.SubexpNames()

	return advanced.ReplaceAllStringFunc(text, func(match string) string {
		groups := advanced.FindStringSubmatch(match)
		if groups == nil {
			return match
		}
		in := reassembleInput{}
		for i, n := range names {
			switch n {
			case "prefix":
				in.prefix = groups[i]
			case "quote_left":
				in.quoteLeft = groups[i]
			case "scheme":
				in.scheme = groups[i]
			case "scheme_slash":
				in.schemeSlash = groups[i]
			case "domain":
				in.domain = groups[i]
			case "port":
				in.port = groups[i]
			case "path":
				in.path = groups[i]
			case "query_string":
				in.query = groups[i]
			case "quote_right":
				in.quoteRight = groups[i]
			case "right_suffix":
				in.rightSuffix = groups[i]
			}
		}

		if shouldDropRewrite(in, mime) {
			return match
		}

		needsSlashEscape := strings.Contains(in.scheme, `\/`) || strings.Contains(in.path, `\/`)
		workingPath := in.path
		if needsSlashEscape {
			workingPath, _ = unescapeJSON(workingPath)
		}

		domain := in.domain
		if domain == "" {
			domain = remoteDomain
		}
		if !cfg.IsAllowedDomain(domain) {
			return match
		}

		resolvedPath := resolveRelative(remotePath, workingPath)
		if !strings.HasPrefix(resolvedPath, "/") {
			resolvedPath = "/" + resolvedPath
		}

		if cfg.IsExternalDomain(domain) {
			resolvedPath = "/extdomains/" + domain + resolvedPath
		}

		var schemeHostPrefix string
		switch {
		case in.scheme == "":
			schemeHostPrefix = ""
		case !strings.Contains(strings.ToLower(in.scheme), "http"):
			schemeHostPrefix = "//" + cfg.MyHost()
		default:
			schemeHostPrefix = cfg.MyScheme + cfg.MyHost()
		}

		rewritten := schemeHostPrefix + resolvedPath
		if in.query != "" {
			rewritten += "?" + in.query
		}
		if needsSlashEscape {
			rewritten = reescapeJSON(rewritten)
		}

		return in.prefix + in.quoteLeft + rewritten + in.quoteRight + in.rightSuffix
	})
}

// shouldDropRewrite implements the rule-1 "return match verbatim" gate of
// spec.md §4.B.
func shouldDropRewrite(in reassembleInput, mime string) bool {
	if in.path == "" {
		return true
	}
	isURLOrImport := in.prefix == "url(" || in.prefix == "@import"
	if !isURLOrImport && (in.quoteLeft == "" || in.quoteRight == ")") {
		return true
	}
	if strings.HasSuffix(strings.TrimSpace(in.prefix), ":") && !strings.Contains(in.path, "/") {
		return true
	}
	if (in.quoteLeft == "") != (in.quoteRight == "") {
		return true
	}
	if in.quoteLeft != "" && in.quoteLeft != in.quoteRight {
		return true
	}
	if strings.Contains(mime, "javascript") && in.scheme == "" && in.quoteLeft != "" {
		return true
	}
	return false
}

// resolveRelative joins base and ref the way a browser would, favoring
// url.Parse's own relative-reference resolution.
func resolveRelative(basePath, ref string) string {
	base, err := url.Parse(basePath)
	if err != nil {
		return path.Clean("/" + ref)
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return path.Clean("/" + ref)
	}
	return resolved.Path
}
