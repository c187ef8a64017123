package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/junkai/internal/config"
	"github.com/JonMunkholm/junkai/internal/core"
	"github.com/JonMunkholm/junkai/internal/logging"
	"github.com/JonMunkholm/junkai/internal/sheets"
	"github.com/JonMunkholm/junkai/internal/storage"
	"github.com/JonMunkholm/junkai/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage opened", "driver", cfg.Storage.Driver)

	fetcher := sheets.NewClient(cfg.Sheets)
	service, err := core.NewService(ctx, store,
		core.WithFetcher(fetcher),
		core.WithDefaultSheetName(cfg.Sheets.DefaultSheetName),
		core.WithFetchTimeout(cfg.Sheets.FetchTimeout),
		core.WithMaxCSVBytes(cfg.Import.MaxFileSize),
	)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	jobsDone := make(chan struct{})
	go func() {
		defer close(jobsDone)
		service.StartPersistScheduler(jobCtx, cfg.Persist.RetryInterval)
	}()

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Fetches started by handlers that timed out may still be running.
		if status := fetcher.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for spreadsheet fetches", "active", status.Active)
			if err := fetcher.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("fetches did not complete in time", "error", err)
			}
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
		slog.Info("server stopped")
	} else if err != nil {
		slog.Error("server failed", "error", err)
	}

	// The scheduler flushes dirty state once more when stopped.
	cancelJobs()
	<-jobsDone
}
