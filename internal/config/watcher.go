package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zmirror/zmirror/internal/logging"
)

// WatcherOptions controls ConfigWatcher behavior.
type WatcherOptions struct {
	// DebounceDelay collapses the burst of fsnotify events a single save
	// produces (many editors write-then-rename) into one reload attempt.
	DebounceDelay time.Duration
	// OnReload is invoked after a new Config has been published.
	OnReload func(cfg *Config, result *ValidationResult)
	// OnError is invoked when a reload attempt fails or produces an invalid
	// config; the previous Config keeps serving traffic in either case.
	OnError func(err error)
}

// DefaultWatcherOptions returns the watcher's default debounce and no-op
// callbacks.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceDelay: 500 * time.Millisecond,
		OnReload:      func(*Config, *ValidationResult) {},
		OnError:       func(error) {},
	}
}

// ConfigWatcher holds the single published Config for the process and,
// optionally, watches configPath for changes. Readers call Current to get
// the snapshot in effect at the moment of the call; a reload never mutates
// a Config a caller is already holding, it only publishes a new one.
type ConfigWatcher struct {
	configPath string
	logger     *logging.Logger
	opts       WatcherOptions

	current atomic.Pointer[Config]

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	debounceMutex sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher loads configPath once (via Load), publishes the result, and —
// if watch is true — starts an fsnotify watch on its directory so later
// edits are picked up without a restart (spec.md §3, SPEC_FULL.md §4.I).
// An invalid initial config is a startup error; an invalid reload later on
// is only ever logged, never fatal.
func NewWatcher(configPath string, logger *logging.Logger, opts WatcherOptions, watch bool) (*ConfigWatcher, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg, result, err := Load(absPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load initial configuration: %w", err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("initial configuration is invalid: %s", firstError(result))
	}

	cw := &ConfigWatcher{
		configPath: absPath,
		logger:     logger,
		opts:       opts,
	}
	cw.current.Store(cfg)

	if !watch {
		return cw, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	cw.fsw = fsw
	cw.ctx, cw.cancel = context.WithCancel(context.Background())
	cw.done = make(chan struct{})
	go cw.watch()

	return cw, nil
}

// Current returns the Config snapshot in effect right now. The returned
// value is never mutated; a later reload only ever swaps the pointer.
func (cw *ConfigWatcher) Current() *Config {
	return cw.current.Load()
}

func (cw *ConfigWatcher) watch() {
	defer close(cw.done)

	for {
		select {
		case <-cw.ctx.Done():
			return

		case event, ok := <-cw.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.configPath {
				continue
			}
			switch {
			case event.Op&fsnotify.Write == fsnotify.Write,
				event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				cw.debounceReload()
			}

		case err, ok := <-cw.fsw.Errors:
			if !ok {
				return
			}
			cw.opts.OnError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

func (cw *ConfigWatcher) debounceReload() {
	cw.debounceMutex.Lock()
	defer cw.debounceMutex.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.debounceTimer = time.AfterFunc(cw.opts.DebounceDelay, cw.reload)
}

// reload re-parses and validates the config file; only a valid result is
// ever published. This is the atomic-pointer-swap step: the previous
// *Config is left untouched and continues to be observed by any request
// that captured it before the swap.
func (cw *ConfigWatcher) reload() {
	cfg, result, err := Load(cw.configPath, cw.logger)
	if err != nil {
		if cw.logger != nil {
			cw.logger.ConfigReloadFailed(cw.configPath, err)
		}
		cw.opts.OnError(err)
		return
	}
	if !result.Valid {
		err := fmt.Errorf("config reload rejected: %s", firstError(result))
		if cw.logger != nil {
			cw.logger.ConfigReloadFailed(cw.configPath, err)
		}
		cw.opts.OnError(err)
		return
	}

	cw.current.Store(cfg)
	if cw.logger != nil {
		cw.logger.ConfigReloaded(cw.configPath)
	}
	cw.opts.OnReload(cfg, result)
}

// Stop ends the watch goroutine, if one was started, and releases the
// underlying fsnotify watcher.
func (cw *ConfigWatcher) Stop() error {
	if cw.fsw == nil {
		return nil
	}
	cw.cancel()

	cw.debounceMutex.Lock()
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.debounceMutex.Unlock()

	err := cw.fsw.Close()
	<-cw.done
	return err
}

func firstError(result *ValidationResult) string {
	if len(result.Errors) == 0 {
		return "invalid configuration"
	}
	return result.Errors[0].Error()
}
