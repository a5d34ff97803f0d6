package respwrite

import (
	"net/http"
	"strings"
	"testing"

	"github.com/zmirror/zmirror/internal/config"
	"github.com/zmirror/zmirror/internal/regexlib"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.MyHostName = "mirror.example"
	cfg.MyScheme = "https://"
	cfg.TargetDomain = "origin.example"
	cfg.TargetScheme = "https://"
	return cfg
}

func TestParseRemoteResponse_ImageIsStreamed(t *testing.T) {
	p := ParseRemoteResponse("image/png", true, "", "GET", 200)
	if !p.StreamOurResponse {
		t.Error("expected image/png to be classified as streamed")
	}
}

func TestParseRemoteResponse_NotCacheableOnNoStore(t *testing.T) {
	p := ParseRemoteResponse("text/html", true, "no-store", "GET", 200)
	if p.Cacheable {
		t.Error("expected no-store to make the response uncacheable")
	}
}

func TestParseRemoteResponse_OnlyGET200Cacheable(t *testing.T) {
	p := ParseRemoteResponse("text/html", true, "", "POST", 200)
	if p.Cacheable {
		t.Error("POST responses must never be cacheable")
	}
}

func TestResponseContentRewrite_BinaryPassesThrough(t *testing.T) {
	cfg := testConfig()
	body := []byte{0x00, 0x01, 0x02}
	out := ResponseContentRewrite(cfg, "image/png", body, RewriteOptions{Detector: DefaultCharsetDetector})
	if string(out) != string(body) {
		t.Error("expected a binary MIME body to pass through untouched")
	}
}

func TestResponseContentRewrite_RewritesHTMLReferences(t *testing.T) {
	cfg := testConfig()
	advanced := regexlib.Advanced
	basic := regexlib.BuildBasic([]string{"origin.example"})

	body := []byte(`<html><head></head><body><a href="https://origin.example/page">x</a></body></html>`)
	out := ResponseContentRewrite(cfg, "text/html", body, RewriteOptions{
		Advanced: advanced, Basic: basic, Detector: DefaultCharsetDetector,
		RemoteDomain: "origin.example", RemotePath: "/",
	})
	if string(out) == string(body) {
		t.Error("expected the origin reference to be rewritten to mirror-space")
	}
}

func TestRewriteRespHeaders_DropsCORSHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedRemoteRespHeaders = []string{"access-control-allow-origin", "content-type"}
	upstream := http.Header{"Access-Control-Allow-Origin": {"*"}, "Content-Type": {"text/html"}}
	out := RewriteRespHeaders(cfg, upstream, HeaderRewriteOptions{HeaderReqTime: "10ms", ComputeTime: "1ms"})
	if out.Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected Access-Control-Allow-Origin to be dropped")
	}
}

func TestRewriteRespHeaders_WhitelistFiltersUnknownHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedRemoteRespHeaders = []string{"content-type"}
	upstream := http.Header{"X-Upstream-Secret": {"shh"}, "Content-Type": {"text/plain"}}
	out := RewriteRespHeaders(cfg, upstream, HeaderRewriteOptions{HeaderReqTime: "10ms", ComputeTime: "1ms"})
	if out.Get("X-Upstream-Secret") != "" {
		t.Error("expected a non-whitelisted header to be dropped")
	}
}

func TestRewriteRespHeaders_AddsUTF8Charset(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedRemoteRespHeaders = []string{"content-type"}
	upstream := http.Header{"Content-Type": {"text/html"}}
	out := RewriteRespHeaders(cfg, upstream, HeaderRewriteOptions{HeaderReqTime: "10ms", ComputeTime: "1ms"})
	if out.Get("Content-Type") != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want a charset appended", out.Get("Content-Type"))
	}
}

func TestRewriteRespHeaders_AlwaysAddsTimingHeaders(t *testing.T) {
	cfg := testConfig()
	out := RewriteRespHeaders(cfg, http.Header{}, HeaderRewriteOptions{HeaderReqTime: "10ms", ComputeTime: "1ms"})
	if out.Get("X-Header-Req-Time") != "10ms" || out.Get("X-Powered-By") == "" {
		t.Error("expected timing/identification headers to always be present")
	}
}

func TestRewriteRespHeaders_SetCookieDomainRewritten(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedRemoteRespHeaders = []string{"set-cookie"}
	upstream := http.Header{"Set-Cookie": {"sessionid=abc; domain=origin.example; Path=/"}}
	out := RewriteRespHeaders(cfg, upstream, HeaderRewriteOptions{HeaderReqTime: "10ms", ComputeTime: "1ms"})
	if got := out.Get("Set-Cookie"); got == "" {
		t.Fatal("expected a rewritten Set-Cookie header")
	} else if !strings.Contains(got, "domain=mirror.example") {
		t.Errorf("Set-Cookie domain not rewritten: %q", got)
	}
}
