// Package respwrite classifies and rewrites upstream responses before they
// reach the client: MIME/streaming classification, charset-aware text body
// rewriting, content injection, and header rewriting (spec.md §4.E).
package respwrite

import "strings"

// Parsed is the classification parse_remote_response derives from a raw
// upstream response (spec.md §4.E).
type Parsed struct {
	ContentType       string
	MIME              string
	StreamOurResponse bool
	Cacheable         bool
}

// binaryStreamMIMEs are substrings that mark a response as one the mirror
// streams through rather than buffers for rewriting.
var binaryStreamMIMEs = []string{
	"video", "audio", "binary", "octet-stream", "x-compress",
	"application/zip", "pdf", "msword", "powerpoint", "vnd.ms-excel", "image",
}

// ParseRemoteResponse derives content_type/mime/stream_our_response/cacheable
// from an upstream response's headers, method and status (spec.md §4.E).
func ParseRemoteResponse(contentType string, streamTransferEnable bool, cacheControl, method string, status int) Parsed {
	mime := mimeOf(contentType)

	streamable := false
	for _, m := range binaryStreamMIMEs {
		if strings.Contains(mime, m) {
			streamable = true
			break
		}
	}

	cacheable := method == "GET" && status == 200 && !hasNoCacheDirective(cacheControl)

	return Parsed{
		ContentType:       contentType,
		MIME:              mime,
		StreamOurResponse: streamTransferEnable && streamable,
		Cacheable:         cacheable,
	}
}

func mimeOf(contentType string) string {
	mime := contentType
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

func hasNoCacheDirective(cacheControl string) bool {
	cc := strings.ToLower(cacheControl)
	for _, directive := range []string{"no-store", "must-revalidate", "max-age=0", "private"} {
		if strings.Contains(cc, directive) {
			return true
		}
	}
	return false
}

// isTextLike reports whether mime matches one of the configured
// text_like_mime_types by substring (spec.md §4.E).
func isTextLike(mime string, textLikeMimeTypes []string) bool {
	for _, t := range textLikeMimeTypes {
		if strings.Contains(mime, t) {
			return true
		}
	}
	return false
}
