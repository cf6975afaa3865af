package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/notify"
)

// Milestones for reminder notifications. The tag persisted alongside a
// delivery attempt is "<milestone>-<reminder id>".
const (
	MilestoneOneDay = "reminder-1day"
	MilestoneToday  = "reminder-today"
)

// ReminderStore is the slice of the storage layer the worker needs: the
// reminder list and the persisted sent-marks.
type ReminderStore interface {
	ListReminders(ctx context.Context) ([]core.Reminder, error)
	HasMark(ctx context.Context, tag string) (bool, error)
	AddMark(ctx context.Context, tag string, reminderID int64, milestone string) error
}

// ReminderWorker checks reminders against their due dates and pushes at most
// one notification per (reminder, milestone) pair. Delivery state lives in the
// store, so restarts never re-notify.
type ReminderWorker struct {
	store    ReminderStore
	notifier notify.Notifier
	interval time.Duration
}

func NewReminderWorker(store ReminderStore, notifier notify.Notifier, interval time.Duration) *ReminderWorker {
	return &ReminderWorker{
		store:    store,
		notifier: notifier,
		interval: interval,
	}
}

// Run wakes on a ticker and executes a check cycle each time. It returns when
// the context is cancelled. The first cycle runs immediately so a freshly
// started worker does not sit idle for a full interval.
func (w *ReminderWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Reminder worker started", "interval", w.interval)

	if err := w.CheckCycle(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial reminder check failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Reminder worker stopping")
			return ctx.Err()
		case now := <-ticker.C:
			if err := w.CheckCycle(ctx, now); err != nil {
				slog.ErrorContext(ctx, "Reminder check failed", "error", err)
			}
		}
	}
}

// CheckCycle scans all reminders and notifies the ones crossing a milestone.
// Due dates are compared by calendar day in local time, so a cycle running at
// 23:59 and one at 00:01 agree on which day a reminder falls on.
func (w *ReminderWorker) CheckCycle(ctx context.Context, now time.Time) error {
	reminders, err := w.store.ListReminders(ctx)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}

	for _, r := range reminders {
		var err error
		switch daysUntil(now, r.Due) {
		case 1:
			err = w.notifyOnce(ctx, r, MilestoneOneDay, fmt.Sprintf("%q is due tomorrow", r.Title))
		case 0:
			err = w.notifyOnce(ctx, r, MilestoneToday, fmt.Sprintf("%q is due today", r.Title))
		}
		// One bad reminder must not starve the rest of the batch; the
		// next cycle retries anything whose mark was never written.
		if err != nil {
			slog.ErrorContext(ctx, "Reminder check failed",
				"reminder_id", r.ID, "error", err)
		}
	}

	return nil
}

// HandleReminderAdded reacts to a reminder published over AMQP. Reminders due
// within the upcoming milestone window get an immediate check instead of
// waiting for the next tick.
func (w *ReminderWorker) HandleReminderAdded(ctx context.Context, msg *amqp.ReminderAddedMessage) error {
	slog.InfoContext(ctx, "Processing reminder added message",
		"id", msg.ID,
		"title", msg.Title,
		"due", msg.Due.Format(time.RFC3339))

	days := daysUntil(time.Now(), msg.Due)
	if days < 0 || days > 1 {
		return nil
	}

	return w.CheckCycle(ctx, time.Now())
}

// notifyOnce delivers a milestone notification unless its mark already exists.
// The mark is written even when delivery fails: the notifier gives no receipt,
// so a retry risks a duplicate push and we prefer a missed one.
func (w *ReminderWorker) notifyOnce(ctx context.Context, r core.Reminder, milestone, body string) error {
	tag := fmt.Sprintf("%s-%d", milestone, r.ID)

	sent, err := w.store.HasMark(ctx, tag)
	if err != nil {
		return fmt.Errorf("check sent mark %s: %w", tag, err)
	}
	if sent {
		return nil
	}

	if r.Amount.Cents > 0 {
		body = fmt.Sprintf("%s (%s)", body, r.Amount)
	}

	n := notify.Notification{
		Title: "Payment reminder",
		Body:  body,
		Tag:   tag,
	}
	if err := w.notifier.Send(ctx, n); err != nil {
		slog.ErrorContext(ctx, "Failed to deliver reminder notification",
			"tag", tag,
			"reminder_id", r.ID,
			"error", err)
	} else {
		slog.InfoContext(ctx, "Reminder notification sent",
			"tag", tag,
			"reminder_id", r.ID)
	}

	if err := w.store.AddMark(ctx, tag, r.ID, milestone); err != nil {
		return fmt.Errorf("record sent mark %s: %w", tag, err)
	}

	return nil
}

// daysUntil counts whole calendar days from now to due, negative when the due
// date is already past.
func daysUntil(now, due time.Time) int {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := due.Date()
	start := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	end := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
