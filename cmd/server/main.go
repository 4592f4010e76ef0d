// Command server runs the collection orchestrator as a long-lived process:
// the background collection loop plus the HTTP surface (POST /submit,
// GET /status, GET /databases, GET /metrics), grounded in the donor's
// cmd/api/main.go App/Start() shape (dependency init, then a goroutine
// running the server, then a signal-driven graceful shutdown) generalized
// to also own the collection loop goroutine.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/techappsUT/social-queue/internal/bootstrap"
	"github.com/techappsUT/social-queue/internal/config"
	"github.com/techappsUT/social-queue/internal/httpapi"
)

func main() {
	configPath := flag.String("config", "orchestrator.yaml", "run config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o, logger, err := bootstrap.New(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer o.Close()

	go func() {
		if err := o.RunCollectLoop(ctx); err != nil {
			logger.Error("collection loop exited with error", "error", err)
		}
	}()

	handler := httpapi.New(o, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpapi.Router(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux}
		go func() {
			logger.Info("metrics server starting", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced to shutdown", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server forced to shutdown", "error", err)
		}
	}

	logger.Info("server stopped")
}
