package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"yeirin/internal/app"
	"yeirin/internal/platform/config"
	"yeirin/internal/platform/httpserver"
	"yeirin/internal/platform/logger"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	config.LoadDotEnv()
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New("info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		log.Error("failed to initialise application", "error", err)
		os.Exit(1)
	}
	if err := application.Start(); err != nil {
		log.Error("failed to start background jobs", "error", err)
		os.Exit(1)
	}

	srv := httpserver.New(cfg.Server.Addr, application.Handler)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting yeirin", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		exitCode = 1
	}
	if err := application.Close(shutdownCtx); err != nil {
		log.Error("failed to release resources", "error", err)
		exitCode = 1
	}
	log.Info("server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
