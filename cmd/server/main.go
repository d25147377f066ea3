package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/realorai/internal/app"
	"github.com/vytor/realorai/internal/config"
	"github.com/vytor/realorai/internal/logger"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(cfg.LogColors && cfg.LogFormat == "text"),
		logger.WithJSON(cfg.LogFormat == "json"),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("Real or AI Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_driver=%s", cfg.DBDriver)
	log.Debug("timezone=%s", cfg.Timezone)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("max_pairs_scan_days=%d", cfg.ScanDays)
	log.Debug("pipeline_worker_count=%d", cfg.PipelineWorkerCount)
	log.Debug("pipeline_queue_size=%d", cfg.PipelineQueueSize)
	log.Debug("nats_enabled=%t", cfg.NATSURL != "")

	ctx, cancel := context.WithCancel(context.Background())

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize: %v", err)
		os.Exit(1)
	}
	a.Start(ctx)

	// Configure HTTP server. No write timeout: admin event streams stay open.
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.Server().Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Streams hold their requests open, so close them before Shutdown waits.
	a.Streams.Close()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Queued batches finish before the store goes away.
	a.Close()
	cancel()

	log.Info("===========================================")
	log.Info("Real or AI Server Stopped")
	log.Info("===========================================")
}
