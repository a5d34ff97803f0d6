package pipeline

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zmirror/zmirror/internal/cache"
	"github.com/zmirror/zmirror/internal/config"
	"github.com/zmirror/zmirror/internal/hooks"
	"github.com/zmirror/zmirror/internal/logging"
	"github.com/zmirror/zmirror/internal/upstream"
)

func loadTestConfig(t *testing.T, targetDomain string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "zmirror.yaml")
	yaml := "my_host_name: mirror.example\nmy_scheme: http://\ntarget_domain: " + targetDomain + "\ntarget_scheme: http://\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, _, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func newTestPipeline(cfg *config.Config) *Pipeline {
	return New(func() *config.Config { return cfg }, upstream.New(), cache.NewMemoryBackend(10), hooks.NewRegistry(), nil, logging.Default())
}

func TestHandleMirrored_RewritesHTMLReferences(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<a href="http://` + r.Host + `/x">link</a>`))
	}))
	defer origin.Close()

	cfg := loadTestConfig(t, strings.TrimPrefix(origin.URL, "http://"))
	p := newTestPipeline(cfg)

	req := httptest.NewRequest(http.MethodGet, "http://mirror.example/foo", nil)
	rec := httptest.NewRecorder()
	p.HandleMirrored(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "http://mirror.example/x") {
		t.Errorf("body = %q, want a rewritten mirror-space href", body)
	}
	if rec.Header().Get("X-Powered-By") == "" {
		t.Error("expected X-Powered-By to be set")
	}
}

func TestHandleMirrored_CacheHitSkipsUpstream(t *testing.T) {
	hits := 0
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	}))
	defer origin.Close()

	cfg := loadTestConfig(t, strings.TrimPrefix(origin.URL, "http://"))
	p := newTestPipeline(cfg)

	req1 := httptest.NewRequest(http.MethodGet, "http://mirror.example/foo", nil)
	rec1 := httptest.NewRecorder()
	p.HandleMirrored(rec1, req1)

	req2 := httptest.NewRequest(http.MethodGet, "http://mirror.example/foo", nil)
	rec2 := httptest.NewRecorder()
	p.HandleMirrored(rec2, req2)

	if hits != 1 {
		t.Errorf("expected exactly one upstream hit, got %d", hits)
	}
	if rec2.Body.String() != "hello" {
		t.Errorf("cached body = %q, want hello", rec2.Body.String())
	}
}

func TestHandleMirrored_SSRFBlockedYieldsForbidden(t *testing.T) {
	cfg := loadTestConfig(t, "origin.example")
	p := newTestPipeline(cfg)

	req := httptest.NewRequest(http.MethodGet, "http://mirror.example/extdomains/evil.example/x", nil)
	rec := httptest.NewRecorder()
	p.HandleMirrored(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
