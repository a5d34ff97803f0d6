package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Format: "json", Output: &buf})

	logger.CacheHit("https://origin.example/a")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["url"] != "https://origin.example/a" {
		t.Errorf("expected url field, got %v", entry["url"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: "text", Output: &buf})

	logger.CacheHit("https://origin.example/a") // Debug, should be filtered
	if buf.Len() != 0 {
		t.Fatalf("expected debug log to be filtered at warn level, got %q", buf.String())
	}

	logger.SSRFBlocked("evil.example")
	if !strings.Contains(buf.String(), "ssrf gate blocked") {
		t.Fatalf("expected warn log to be emitted, got %q", buf.String())
	}
}
