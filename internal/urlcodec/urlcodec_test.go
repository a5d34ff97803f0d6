package urlcodec

import (
	"testing"

	"github.com/zmirror/zmirror/internal/config"
	"github.com/zmirror/zmirror/internal/regexlib"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.MyHostName = "mirror.example"
	cfg.MyScheme = "https://"
	cfg.MyPort = 443
	cfg.TargetDomain = "origin.example"
	cfg.TargetScheme = "https://"
	cfg.ExternalDomains = []string{"cdn.example"}
	return cfg
}

func TestDecodeMirrorURL_MainDomain(t *testing.T) {
	cfg := testConfig()
	d := DecodeMirrorURL(cfg, "/about?x=1", "")
	if d.Domain != "origin.example" || !d.IsHTTPS {
		t.Errorf("unexpected decode: %+v", d)
	}
	if d.PathQuery != "/about?x=1" {
		t.Errorf("unexpected path_query: %q", d.PathQuery)
	}
}

func TestDecodeMirrorURL_ExtDomains(t *testing.T) {
	cfg := testConfig()
	d := DecodeMirrorURL(cfg, "/extdomains/https-cdn.example/logo.png", "")
	if d.Domain != "cdn.example" || !d.IsHTTPS {
		t.Errorf("unexpected decode: %+v", d)
	}
	if d.Path != "/logo.png" {
		t.Errorf("unexpected path: %q", d.Path)
	}
}

func TestDecodeMirrorURL_ExtDomainsForceHTTPSFallback(t *testing.T) {
	cfg := testConfig()
	cfg.ForceHTTPSPolicy = config.ForceHTTPSAll
	d := DecodeMirrorURL(cfg, "/extdomains/cdn.example/logo.png", "")
	if !d.IsHTTPS {
		t.Error("expected force_https_domains_policy=all to force https even without the https- flag")
	}
}

func TestEncodeMirrorURL_MainDomainNoScheme(t *testing.T) {
	cfg := testConfig()
	out := EncodeMirrorURL(cfg, "/about", EncodeOptions{OriginDomain: "origin.example"})
	if out != "/about" {
		t.Errorf("EncodeMirrorURL = %q, want /about", out)
	}
}

func TestEncodeMirrorURL_ExternalDomain(t *testing.T) {
	cfg := testConfig()
	out := EncodeMirrorURL(cfg, "/logo.png", EncodeOptions{OriginDomain: "cdn.example", HasScheme: true})
	want := "https://mirror.example/extdomains/cdn.example/logo.png"
	if out != want {
		t.Errorf("EncodeMirrorURL = %q, want %q", out, want)
	}
}

func TestEncodeMirrorURL_ForeignDomainPassesThrough(t *testing.T) {
	cfg := testConfig()
	out := EncodeMirrorURL(cfg, "/page", EncodeOptions{OriginDomain: "evil.example", HasScheme: true})
	if out != "/page" {
		t.Errorf("expected a foreign domain to pass through unrewritten, got %q", out)
	}
}

func TestGuessColonFromSlash(t *testing.T) {
	cases := map[string]string{
		"/":     ":",
		"%2F":   "%3A",
		"%2f":   "%3a",
		"%252F": "%253A",
	}
	for slash, want := range cases {
		if got := GuessColonFromSlash(slash); got != want {
			t.Errorf("GuessColonFromSlash(%q) = %q, want %q", slash, got, want)
		}
	}
}

func TestRewriteRemoteToMirrorURL_PreservesEscapeForm(t *testing.T) {
	cfg := testConfig()
	basic := regexlib.BuildBasic([]string{"origin.example", "cdn.example"})

	out := RewriteRemoteToMirrorURL(cfg, basic, "see https%3A%2F%2Forigin.example for details")
	if out == "see https%3A%2F%2Forigin.example for details" {
		t.Fatal("expected the percent-encoded origin reference to be rewritten")
	}
}
