// Package logging provides the structured logger used throughout the
// mirroring pipeline.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger provides structured logging capabilities.
type Logger struct {
	*slog.Logger
}

// Level represents a log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config represents logger configuration.
type Config struct {
	Level  Level
	Format string // "json" or "text"
	Output io.Writer
}

// New creates a new structured logger.
func New(config Config) *Logger {
	var level slog.Level
	switch config.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelInfo:
		level = slog.LevelInfo
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Default returns a logger with sensible defaults.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Format: "text", Output: os.Stdout})
}

// WithContext adds contextual fields to the logger.
func (l *Logger) WithContext(args ...any) *Logger {
	return &Logger{Logger: l.With(args...)}
}

// WithDomain adds origin-domain context.
func (l *Logger) WithDomain(domain string) *Logger {
	return l.WithContext("domain", domain)
}

// WithURL adds origin-URL context.
func (l *Logger) WithURL(url string) *Logger {
	return l.WithContext("url", url)
}

// ConfigLoaded logs successful configuration loading.
func (l *Logger) ConfigLoaded(file string) {
	l.Info("configuration loaded", "file", file)
}

// ConfigReloaded logs a successful hot reload.
func (l *Logger) ConfigReloaded(file string) {
	l.Info("configuration reloaded", "file", file)
}

// ConfigReloadFailed logs a rejected hot reload; the previous config keeps
// serving traffic.
func (l *Logger) ConfigReloadFailed(file string, err error) {
	l.Warn("configuration reload failed, keeping previous config", "file", file, "error", err)
}

// UnknownConfigKey logs a fuzzy-matched suggestion for an unrecognized key.
func (l *Logger) UnknownConfigKey(key, suggestion string, score float64) {
	l.Warn("unknown configuration key", "key", key, "did_you_mean", suggestion, "score", score)
}

// RequestStart logs the beginning of a mirrored request.
func (l *Logger) RequestStart(method, remoteURL string) {
	l.WithURL(remoteURL).Debug("request start", "method", method)
}

// SSRFBlocked logs a blocked outbound request.
func (l *Logger) SSRFBlocked(domain string) {
	l.WithDomain(domain).Warn("ssrf gate blocked outbound request")
}

// UpstreamFetch logs the timing of a completed upstream fetch.
func (l *Logger) UpstreamFetch(remoteURL string, status int, headerTime, bodyTime time.Duration) {
	l.WithURL(remoteURL).Info("upstream fetch complete",
		"status", status,
		"header_time_ms", headerTime.Milliseconds(),
		"body_time_ms", bodyTime.Milliseconds(),
	)
}

// CacheHit logs a cache hit that short-circuited the upstream fetch.
func (l *Logger) CacheHit(remoteURL string) {
	l.WithURL(remoteURL).Debug("cache hit")
}

// CacheMiss logs a cache miss.
func (l *Logger) CacheMiss(remoteURL string) {
	l.WithURL(remoteURL).Debug("cache miss")
}

// CachePending logs a cache lookup that found a without_content entry: the
// headers for this URL are already known from an in-flight stream, but the
// body has not been fully cached yet, so the request still falls through to
// an upstream fetch.
func (l *Logger) CachePending(remoteURL string) {
	l.WithURL(remoteURL).Debug("cache entry pending, body not yet cached")
}

// StreamAbandoned logs that a stream's cache population was abandoned
// because the buffered body exceeded the size limit.
func (l *Logger) StreamAbandoned(remoteURL string, bufferedBytes int) {
	l.WithURL(remoteURL).Debug("stream cache population abandoned", "buffered_bytes", bufferedBytes)
}

// StreamTimeout logs a producer/consumer timeout.
func (l *Logger) StreamTimeout(side, remoteURL string) {
	l.WithURL(remoteURL).Warn("stream timed out", "side", side)
}

// RewriteFailed logs an unrecoverable rewrite failure.
func (l *Logger) RewriteFailed(remoteURL string, err error) {
	l.WithURL(remoteURL).Error("rewrite pipeline failed", "error", err)
}

// ShutdownReceived logs a shutdown signal.
func (l *Logger) ShutdownReceived() {
	l.Info("shutdown signal received, draining requests")
}

// ShutdownComplete logs shutdown completion.
func (l *Logger) ShutdownComplete() {
	l.Info("shutdown complete")
}
