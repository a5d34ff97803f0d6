// Package reqrewrite assembles the per-request RequestContext from an
// inbound client request: decoding its mirror-space URL, filtering and
// rewriting its headers, and tracking the domains it has touched
// (spec.md §4.C).
package reqrewrite

import (
	"net/http"
	"time"

	"github.com/zmirror/zmirror/internal/config"
	"github.com/zmirror/zmirror/internal/regexlib"
	"github.com/zmirror/zmirror/internal/urlcodec"
)

// Timing carries the named timestamps spec.md §3 attaches to a
// RequestContext.
type Timing struct {
	Start         time.Time
	ReqStart      time.Time
	ReqTimeHeader time.Duration
	ReqTimeBody   time.Duration
}

// Context is one in-flight request, exclusively owned by the pipeline for
// its duration (spec.md §3's RequestContext).
type Context struct {
	RemoteDomain     string
	RemotePath       string
	RemotePathQuery  string
	RemoteURL        string
	URLNoScheme      string
	IsHTTPS          bool
	IsExternalDomain bool

	ClientHeader http.Header

	RequestData         []byte
	RequestDataEncoding string

	ExtraRespHeaders http.Header
	ExtraCookies     []*http.Cookie

	Time Timing
}

// RecentDomains is a process-wide set of origin domains this mirror has
// served, purely observational: List returns it, and no page displays it.
type RecentDomains struct {
	seen map[string]struct{}
}

// NewRecentDomains returns an empty domain tracker.
func NewRecentDomains() *RecentDomains {
	return &RecentDomains{seen: make(map[string]struct{})}
}

// Record adds domain to the tracked set.
func (r *RecentDomains) Record(domain string) {
	r.seen[domain] = struct{}{}
}

// List returns the tracked domains in no particular order.
func (r *RecentDomains) List() []string {
	out := make([]string, 0, len(r.seen))
	for d := range r.seen {
		out = append(out, d)
	}
	return out
}

// AssembleParse fills a new Context from an inbound request by decoding its
// mirror-space URL and classifying the resulting domain (spec.md §4.C).
func AssembleParse(cfg *config.Config, req *http.Request, recent *RecentDomains) *Context {
	decoded := urlcodec.DecodeMirrorURL(cfg, req.URL.RequestURI(), "")

	ctx := &Context{
		RemoteDomain:     decoded.Domain,
		RemotePath:       decoded.Path,
		RemotePathQuery:  decoded.PathQuery,
		RemoteURL:        decoded.OriginURL(),
		URLNoScheme:      decoded.Domain + decoded.PathQuery,
		IsHTTPS:          decoded.IsHTTPS,
		IsExternalDomain: cfg.IsExternalDomain(decoded.Domain),
		ExtraRespHeaders: make(http.Header),
		Time:             Timing{Start: time.Now()},
	}

	if recent != nil {
		recent.Record(decoded.Domain)
	}

	ctx.ClientHeader = ExtractClientHeader(cfg, req.Header)
	return ctx
}

// accept-encoding is the one request header the proxy always rewrites
// regardless of its content: the Go HTTP client (and most upstream
// libraries) cannot transparently decode br/sdch.
var acceptedEncodings = "gzip, deflate"

// dropHeaders are stripped entirely from the forwarded request.
var dropHeaders = map[string]struct{}{
	"host":           {},
	"content-length": {},
}

// ExtractClientHeader black-list-filters inbound headers into a header map
// ready to forward upstream (spec.md §4.C). Names are matched
// case-insensitively; the returned map uses Go's canonical header keys
// (e.g. "Content-Type"), not lowercase ones.
func ExtractClientHeader(cfg *config.Config, in http.Header) http.Header {
	out := make(http.Header, len(in))

	for name, values := range in {
		lower := lowerHeaderName(name)
		if _, drop := dropHeaders[lower]; drop {
			continue
		}
		if lower == "content-type" && (len(values) == 0 || values[0] == "") {
			continue
		}
		if lower == "accept-encoding" {
			out.Set("Accept-Encoding", acceptedEncodings)
			continue
		}

		for _, v := range values {
			rewritten := ClientRequestsTextRewrite(cfg, v)
			if lower == "cookie" {
				rewritten = regexlib.VerifyHeader.ReplaceAllString(rewritten, "")
			}
			out.Add(name, rewritten)
		}
	}

	return out
}

func lowerHeaderName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
