package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, result, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"), nil)
	if err != nil {
		t.Fatalf("Load returned error for a missing file: %v", err)
	}
	if !result.Valid {
		t.Fatalf("defaults should validate cleanly, got errors: %v", result.Errors)
	}
	if cfg.TargetDomain != Default().TargetDomain {
		t.Errorf("expected default target_domain, got %q", cfg.TargetDomain)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
target_domain: upstream.test
target_scheme: "https://"
my_host_name: mirror.test
`)
	cfg, result, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid config, got errors: %v", result.Errors)
	}
	if cfg.TargetDomain != "upstream.test" {
		t.Errorf("target_domain not applied from file: %q", cfg.TargetDomain)
	}
	if !cfg.IsAllowedDomain("upstream.test") {
		t.Error("derived sets were not rebuilt after loading from file")
	}
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	path := writeTempConfig(t, "target_domain: [unterminated")
	if _, _, err := Load(path, nil); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestCharOverlapScore(t *testing.T) {
	cases := []struct {
		input, candidate string
		min, max         float64
	}{
		{"target_domian", "target_domain", 0.9, 1.0},
		{"xyz", "target_domain", 0, 0.34},
		{"", "target_domain", 0, 0},
	}
	for _, c := range cases {
		got := charOverlapScore(c.input, c.candidate)
		if got < c.min || got > c.max {
			t.Errorf("charOverlapScore(%q, %q) = %v, want in [%v,%v]", c.input, c.candidate, got, c.min, c.max)
		}
	}
}

func TestBestMatch_AboveThreshold(t *testing.T) {
	known := knownTopLevelKeys()
	suggestion, score := bestMatch("target_domian", known)
	if suggestion != "target_domain" {
		t.Errorf("expected suggestion target_domain, got %q (score %v)", suggestion, score)
	}
	if score < 0.6 {
		t.Errorf("expected score >= 0.6 threshold, got %v", score)
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
