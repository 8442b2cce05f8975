// Command watcher monitors one site's electricity price interval and polls
// the Amber API for the moment the current interval's price is confirmed.
//
// The watcher runs a continuous polling loop that:
//  1. Polls once at each 5-minute interval boundary for the opening estimate
//  2. Schedules confirmatory polls by inverse-sampling a CDF learned from
//     past confirmation times, blended toward uniform coverage as the
//     rate-limit budget shrinks
//  3. Records each confirmation as a new observation and persists the
//     rolling window through the configured store
//
// The watcher serves an HTTP API on port 8082 (configurable) providing:
//   - GET /schedule/current?site=<name> - Current poll schedule and stats
//   - GET /observations?site=<name> - Persisted observation window
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	watcher \
//	  -site=01ABC \
//	  -api-token=psk_... \
//	  -storage=redis \
//	  -redis-addr=localhost:6379
//
// Environment variables:
//
//	SITE            - Site identifier (required)
//	API_TOKEN       - API bearer token (required)
//	API_URL         - API base URL (default: https://api.amber.com.au)
//	STORAGE         - Storage backend: memory or redis (default: memory)
//	INTERVAL_LENGTH - Price interval length (default: 5m)
//	TICK            - Poll decision tick resolution (default: 1s)
//	LOG_LEVEL       - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT      - Logging format: text, json (default: text)
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HatiCode/pricewatch/cmd/watcher/config"
	"github.com/HatiCode/pricewatch/cmd/watcher/logger"
	"github.com/HatiCode/pricewatch/cmd/watcher/metrics"
	"github.com/HatiCode/pricewatch/cmd/watcher/router"
	"github.com/HatiCode/pricewatch/cmd/watcher/store"
	"github.com/HatiCode/pricewatch/pkg/amber"
	"github.com/HatiCode/pricewatch/pkg/httpx"
	"github.com/HatiCode/pricewatch/pkg/observation"
	"github.com/HatiCode/pricewatch/pkg/schedule"
	"github.com/HatiCode/pricewatch/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting pricewatch watcher",
		"version", version,
		"site", cfg.Site,
		"interval_length", cfg.IntervalLength,
	)

	obsStore := store.New(cfg, logger)
	if closer, ok := obsStore.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close store", "error", err)
			}
		}()
	}

	obsLog := observation.NewLog(obsStore, cfg.Site, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := schedule.New(ctx, obsLog,
		schedule.WithIntervalLength(cfg.IntervalLength.Seconds()),
		schedule.WithBudget(cfg.DefaultBudget),
		schedule.WithLogger(logger),
	)

	httpClient, err := httpx.NewClient(cfg.TLS, cfg.ClientTimeout)
	if err != nil {
		logger.Error("failed to create HTTP client", "error", err)
		os.Exit(1)
	}

	client := amber.NewClient(cfg.APIURL, cfg.APIToken, httpClient)
	backoff := amber.NewBackoff(logger)

	manager := NewManager(
		cfg.Site,
		client,
		scheduler,
		backoff,
		cfg.IntervalLength,
		logger,
		metrics.New(cfg.Site),
	)

	mux := router.SetupRoutes(manager, obsStore, cfg.Site, logger)
	handler := httpx.LoggingMiddleware(logger)(httpx.RecoveryMiddleware(logger)(mux))
	httpServer := httpx.NewServer(cfg.Listen, handler, logger)

	if cfg.TLS.Enabled {
		tlsConfig, err := tls.NewServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CAFile)
		if err != nil {
			logger.Error("failed to create server TLS config", "error", err)
			os.Exit(1)
		}
		httpServer.SetTLSConfig(tlsConfig)
	}

	go func() {
		if err := manager.Run(ctx, cfg.Tick); err != nil && err != context.Canceled {
			logger.Error("polling loop failed", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if cfg.TLS.Enabled {
			serverErr <- httpServer.StartTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErr <- httpServer.Start()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
