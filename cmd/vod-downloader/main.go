package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/LambTjops/vod-downloader/internal/catalog"
	"github.com/LambTjops/vod-downloader/internal/config"
	"github.com/LambTjops/vod-downloader/internal/match"
	"github.com/LambTjops/vod-downloader/internal/monitoring"
	"github.com/LambTjops/vod-downloader/internal/queue"
	"github.com/LambTjops/vod-downloader/internal/server"
	"github.com/LambTjops/vod-downloader/internal/store"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (default: data dir config.json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := monitoring.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting vod-downloader",
		zap.String("version", version),
		zap.String("output_dir", cfg.Download.OutputDir))

	if err := os.MkdirAll(cfg.Download.OutputDir, 0755); err != nil {
		logger.Fatal("failed to create output directory", zap.Error(err))
	}

	records := store.NewRecordStore(cfg.Store.FilePath, logger)
	if err := records.Load(); err != nil {
		logger.Fatal("failed to load record store", zap.Error(err))
	}
	logger.Info("record store loaded", zap.Int("records", records.Len()))

	matcher := match.NewMatcher(cfg.Matcher.LengthTolerance, cfg.Download.MinFileSizeMB, logger)
	if indexed, err := matcher.Scan(cfg.Download.OutputDir); err != nil {
		logger.Warn("startup scan failed", zap.Error(err))
	} else {
		logger.Info("download directory scanned", zap.Int("indexed", indexed))
	}

	provider := catalog.NewClient(&cfg.Provider, logger)

	manager := queue.NewManager(cfg, records, matcher, provider, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		logger.Fatal("failed to start download worker", zap.Error(err))
	}
	defer manager.Close()

	health := monitoring.NewHealthChecker(version, records.Path(), cfg.Download.OutputDir)
	handler := server.NewHandler(manager, provider, health, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handler.NewRouter(),
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
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
