package urlcodec

import (
	"strings"

	"github.com/zmirror/zmirror/internal/config"
)

// DecodeMirrorURL turns a mirror-space URL, a bare path, or an empty string
// (meaning "the current request's own URL") into origin-space coordinates
// (spec.md §4.B). currentPath is used when maybeURL is empty.
func DecodeMirrorURL(cfg *config.Config, maybeURL, currentPath string) Decoded {
	raw := maybeURL
	if raw == "" {
		raw = currentPath
	}

	unescaped, wasEscaped := unescapeJSON(raw)
	path := unescaped

	if strings.HasPrefix(path, "/extdomains/") {
		rest := strings.TrimPrefix(path, "/extdomains/")
		rest = strings.TrimPrefix(rest, "//")

		httpsFlagged := strings.HasPrefix(rest, "https-")
		if httpsFlagged {
			rest = strings.TrimPrefix(rest, "https-")
		}

		domain, pathQuery := splitAuthorityFromRest(rest)
		isHTTPS := httpsFlagged
		if !httpsFlagged {
			isHTTPS = cfg.ShouldForceHTTPS(domain)
		}

		result := Decoded{Domain: domain, IsHTTPS: isHTTPS, Path: pathOnly(pathQuery), PathQuery: pathQuery}
		if wasEscaped {
			result.PathQuery = reescapeJSON(result.PathQuery)
		}
		return result
	}

	return Decoded{
		Domain:    cfg.TargetDomain,
		IsHTTPS:   cfg.TargetScheme == "https://",
		Path:      pathOnly(path),
		PathQuery: path,
	}
}

// splitAuthorityFromRest splits "host[:port][/path?query]" into the bare
// host and the remaining "/path?query" (defaulting to "/").
func splitAuthorityFromRest(rest string) (host, pathQuery string) {
	idx := strings.IndexAny(rest, "/")
	if idx < 0 {
		return rest, "/"
	}
	return rest[:idx], rest[idx:]
}

func pathOnly(pathQuery string) string {
	if i := strings.IndexByte(pathQuery, '?'); i >= 0 {
		return pathQuery[:i]
	}
	return pathQuery
}
