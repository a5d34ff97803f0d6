package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_NoWatchLoadsOnce(t *testing.T) {
	path := writeTempConfig(t, "target_domain: upstream.test\n")

	cw, err := NewWatcher(path, nil, DefaultWatcherOptions(), false)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer cw.Stop()

	if cw.Current().TargetDomain != "upstream.test" {
		t.Errorf("expected loaded target_domain, got %q", cw.Current().TargetDomain)
	}
}

func TestNewWatcher_RejectsInvalidInitialConfig(t *testing.T) {
	path := writeTempConfig(t, "my_scheme: \"ftp://\"\n")

	if _, err := NewWatcher(path, nil, DefaultWatcherOptions(), false); err == nil {
		t.Fatal("expected an invalid initial configuration to fail NewWatcher")
	}
}

func TestConfigWatcher_ReloadSwapsPointerWithoutMutatingPrevious(t *testing.T) {
	path := writeTempConfig(t, "target_domain: first.test\n")

	reloaded := make(chan *Config, 1)
	opts := DefaultWatcherOptions()
	opts.DebounceDelay = 10 * time.Millisecond
	opts.OnReload = func(cfg *Config, _ *ValidationResult) { reloaded <- cfg }

	cw, err := NewWatcher(path, nil, opts, true)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer cw.Stop()

	before := cw.Current()
	if before.TargetDomain != "first.test" {
		t.Fatalf("unexpected initial target_domain: %q", before.TargetDomain)
	}

	if err := os.WriteFile(path, []byte("target_domain: second.test\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	after := cw.Current()
	if after.TargetDomain != "second.test" {
		t.Errorf("expected reloaded target_domain second.test, got %q", after.TargetDomain)
	}
	if before.TargetDomain != "first.test" {
		t.Error("a previously captured *Config must never be mutated by a later reload")
	}
	if before == after {
		t.Error("reload must publish a new *Config value, not mutate the existing one")
	}
}

func TestConfigWatcher_InvalidReloadKeepsPreviousConfig(t *testing.T) {
	path := writeTempConfig(t, "target_domain: good.test\n")

	errs := make(chan error, 1)
	opts := DefaultWatcherOptions()
	opts.DebounceDelay = 10 * time.Millisecond
	opts.OnError = func(err error) { errs <- err }

	cw, err := NewWatcher(path, nil, opts, true)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer cw.Stop()

	if err := os.WriteFile(path, []byte("my_scheme: \"ftp://\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-errs:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	if cw.Current().TargetDomain != "good.test" {
		t.Error("an invalid reload must not replace the previously valid config")
	}
}

func TestNewWatcher_ResolvesRelativePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("target_domain: rel.test\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cw, err := NewWatcher(path, nil, DefaultWatcherOptions(), false)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer cw.Stop()
	if cw.Current().TargetDomain != "rel.test" {
		t.Error("expected config loaded from absolute-resolved path")
	}
}
