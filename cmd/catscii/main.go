// Package main wires together the catscii service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/TheGhostHuCodes/catscii/internal/api"
	"github.com/TheGhostHuCodes/catscii/internal/art"
	"github.com/TheGhostHuCodes/catscii/internal/ascii"
	"github.com/TheGhostHuCodes/catscii/internal/config"
	"github.com/TheGhostHuCodes/catscii/internal/logging"
	"github.com/TheGhostHuCodes/catscii/internal/telemetry"
	"github.com/TheGhostHuCodes/catscii/internal/upstream"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := upstream.New(upstream.Config{
		APIURL:    cfg.Upstream.APIURL,
		APIKey:    cfg.Upstream.APIKey,
		Timeout:   cfg.FetchTimeout(),
		RateRPS:   cfg.Upstream.RateRPS,
		RateBurst: cfg.Upstream.RateBurst,
	}, logger.Named("upstream"))

	var source upstream.Source = client
	if cfg.Upstream.MaxRetries > 0 {
		source = upstream.NewRetrySource(client, upstream.RetryConfig{
			MaxRetries:     cfg.Upstream.MaxRetries,
			BackoffInitial: time.Duration(cfg.Upstream.BackoffInitialMs) * time.Millisecond,
			BackoffMax:     time.Duration(cfg.Upstream.BackoffMaxMs) * time.Millisecond,
		}, logger.Named("retry"))
	}

	renderer := ascii.NewRenderer(cfg.Render.Columns, cfg.Render.HeightScale, ascii.DefaultRamp)
	coordinator := art.NewCoordinator(source, renderer, art.SystemClock{}, art.Config{
		FreshnessWindow: cfg.FreshnessWindow(),
		ServeStale:      cfg.Cache.ServeStale,
	}, logger.Named("art"))

	apiServer := api.NewServer(coordinator, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
}
