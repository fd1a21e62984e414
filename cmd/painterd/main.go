// Painter daemon - turns uploaded images into click sequences against an
// in-game pixel art canvas, controlled over HTTP/WebSocket.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixelbrush/pixelbrush/internal/config"
	"github.com/pixelbrush/pixelbrush/internal/job"
	"github.com/pixelbrush/pixelbrush/internal/pointer"
	"github.com/pixelbrush/pixelbrush/internal/screen"
	"github.com/pixelbrush/pixelbrush/internal/server"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := config.Load()

	tapper, err := pointer.NewTapper()
	if err != nil {
		slog.Error("pointer automation unavailable", "error", err)
		os.Exit(1)
	}

	capturer := screen.NewDisplayCapturer()

	// Corner failsafe needs the display bounds; without them painting still
	// works, just without the corner abort.
	var failsafe func() bool
	if bounds, err := screen.PrimaryBounds(); err != nil {
		slog.Warn("display bounds unavailable, corner failsafe disabled", "error", err)
	} else {
		failsafe = pointer.CornerFailsafe(tapper.Position, bounds, cfg.FailsafeMargin)
	}

	mgr, err := job.NewManager(cfg, capturer, tapper, failsafe)
	if err != nil {
		slog.Error("failed to load session", "settings", cfg.SettingsPath, "error", err)
		os.Exit(1)
	}

	srv := server.New(mgr)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("painter daemon starting", "http", cfg.HTTPAddr, "settings", cfg.SettingsPath)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	mgr.Close()
	slog.Info("shutdown complete")
}
