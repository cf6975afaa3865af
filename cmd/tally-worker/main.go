package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	applog "tally/internal/log"
	"tally/internal/notify"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.Setup(cfg.LogLevel, applog.ComponentWorker)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting tally-worker", "check_interval", cfg.CheckInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.New(cfg.SQLiteDBPath)
	if err := store.Open(ctx); err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	var notifier notify.Notifier
	if cfg.NtfyURL != "" && cfg.NtfyTopic != "" {
		notifier = notify.NewNtfyNotifier(cfg.NtfyURL, cfg.NtfyTopic)
		logger.Info("Push notifications enabled", "topic", cfg.NtfyTopic)
	} else {
		notifier = notify.LogNotifier{}
		logger.Info("Push notifications disabled - logging only")
	}

	reminderWorker := worker.NewReminderWorker(store, notifier, cfg.CheckInterval)

	// AMQP wake channel is optional; the ticker covers lost messages anyway.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, running on periodic checks only", "error", err)
		} else {
			defer amqpClient.Close()
			go func() {
				if err := amqpClient.ConsumeReminderAdded(ctx, reminderWorker.HandleReminderAdded); err != nil {
					if !errors.Is(err, context.Canceled) {
						logger.Error("Message consumption failed", "error", err)
					}
					cancel()
				}
			}()
		}
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if err := reminderWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
