package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	apphttp "tally/internal/http"
	applog "tally/internal/log"
	"tally/internal/scanner"
	"tally/internal/services"
	"tally/internal/storage"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.Setup(cfg.LogLevel, applog.ComponentApp)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.New(cfg.SQLiteDBPath)
	if err := store.Open(ctx); err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// AMQP is optional; without it the worker relies on its periodic check.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, reminder wake messages disabled", "error", err)
		} else {
			defer amqpClient.Close()
		}
	}

	var scanClient *scanner.Client
	if cfg.ScannerAPIURL != "" && cfg.ScannerAPIKey != "" {
		scanClient = scanner.NewClient(cfg.ScannerAPIURL, cfg.ScannerAPIKey, cfg.ScannerModel)
		logger.Info("Receipt scanner enabled", "model", cfg.ScannerModel)
	} else {
		logger.Info("Receipt scanner disabled - no SCANNER_API_URL/SCANNER_API_KEY provided")
	}

	reminderService := services.NewReminderService(store, amqpClient)
	if err := reminderService.PrunePast(ctx, time.Now()); err != nil {
		logger.Warn("Startup reminder pruning failed", "error", err)
	}

	srv := apphttp.NewServer(
		":"+cfg.Port,
		store,
		services.NewSummaryService(store),
		services.NewExpenseService(store),
		reminderService,
		services.NewBackupService(store),
		scanClient,
	)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting tally server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
