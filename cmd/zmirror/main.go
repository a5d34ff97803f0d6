// Command zmirror runs the transparent mirroring reverse proxy described in
// spec.md: it loads a YAML configuration, watches it for hot reload, and
// serves the welcome page and mirrored requests over HTTP until it receives
// SIGINT/SIGTERM.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zmirror/zmirror/internal/cache"
	"github.com/zmirror/zmirror/internal/config"
	"github.com/zmirror/zmirror/internal/hooks"
	"github.com/zmirror/zmirror/internal/logging"
	"github.com/zmirror/zmirror/internal/metrics"
	"github.com/zmirror/zmirror/internal/pipeline"
	"github.com/zmirror/zmirror/internal/upstream"
	"github.com/zmirror/zmirror/pkg/server"
)

func main() {
	var (
		configPath    = flag.String("config", "zmirror.yaml", "Configuration file path")
		listenAddr    = flag.String("listen", ":8080", "Mirror HTTP listen address")
		watchConfig   = flag.Bool("watch-config", true, "Reload configuration on file change")
		cacheEntries  = flag.Int("cache-entries", 10000, "Maximum in-memory cache entries")
		logFormat     = flag.String("log-format", "text", "Log format: text or json")
		enableMetrics = flag.Bool("metrics", false, "Enable the Prometheus metrics/health listener")
		metricsAddr   = flag.String("metrics-addr", ":9090", "Metrics/health listen address")
		showVersion   = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("zmirror (dev build)")
		os.Exit(0)
	}

	logger := logging.New(logging.Config{Level: logging.LevelInfo, Format: *logFormat})
	logger.Info("starting zmirror", "config", *configPath, "listen", *listenAddr)

	watcher, err := config.NewWatcher(*configPath, logger, config.DefaultWatcherOptions(), *watchConfig)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.ConfigLoaded(*configPath)
	defer watcher.Stop()

	var collector *metrics.Collector
	if *enableMetrics {
		collector = metrics.NewCollector()
	}

	client := upstream.New()
	defer client.Shutdown()

	p := pipeline.New(
		watcher.Current,
		client,
		cache.NewMemoryBackend(*cacheEntries),
		hooks.NewRegistry(),
		collector,
		logger,
	)

	srv := server.New(server.Config{
		ListenAddr:      *listenAddr,
		MetricsEnabled:  *enableMetrics,
		MetricsAddr:     *metricsAddr,
		ShutdownTimeout: 30 * time.Second,
	}, p, collector, logger)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-signalChan:
		logger.Info("received shutdown signal", "signal", sig)
		logger.ShutdownReceived()
		if err := srv.Shutdown(); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
		logger.ShutdownComplete()
	}
}
