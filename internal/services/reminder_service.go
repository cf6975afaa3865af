package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

// ReminderService orchestrates reminder operations across the store and AMQP.
// Publishing the wake message is best-effort: the periodic worker check picks
// up any reminder whose message was lost.
type ReminderService struct {
	store      *storage.Store
	amqpClient *amqp.Client
}

func NewReminderService(store *storage.Store, amqpClient *amqp.Client) *ReminderService {
	return &ReminderService{
		store:      store,
		amqpClient: amqpClient,
	}
}

func (s *ReminderService) List(ctx context.Context) ([]core.Reminder, error) {
	return s.store.ListReminders(ctx)
}

// Create validates and persists a reminder, then wakes the worker so
// near-term reminders are checked without waiting for the next tick.
func (s *ReminderService) Create(ctx context.Context, r core.Reminder) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.AddReminder(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("save reminder: %w", err)
	}

	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping reminder wake message", "id", id)
		return id, nil
	}

	if err := s.amqpClient.PublishReminderAdded(ctx, id, r.Title, r.Due); err != nil {
		slog.ErrorContext(ctx, "Failed to publish reminder wake message",
			"id", id, "error", err)
		// Reminder is saved; the periodic check covers it.
	}

	return id, nil
}

func (s *ReminderService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteReminder(ctx, id)
}

// PrunePast removes reminders already past due. Called at startup as
// housekeeping; their notification window is gone either way.
func (s *ReminderService) PrunePast(ctx context.Context, now time.Time) error {
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	if _, err := s.store.DeletePastReminders(ctx, cutoff); err != nil {
		return fmt.Errorf("prune past reminders: %w", err)
	}
	return nil
}
