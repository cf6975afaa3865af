// Package notify is the boundary to the local-notification presentation
// facility. The worker hands over title, body and a dedup tag; delivery
// confirmation is never reported back, so uncertainty is logged and the
// milestone is not retried.
package notify

import (
	"context"
	"log/slog"
)

// Notification is one message to present to the user.
type Notification struct {
	Title string
	Body  string
	// Tag identifies the (reminder, milestone) pair; the presentation
	// facility may use it to collapse duplicates.
	Tag string
}

// Notifier presents a notification. Implementations must treat Send as
// fire-and-forget: an error means delivery is uncertain, not that it
// definitely failed.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log. Used when no push endpoint
// is configured.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, "Notification",
		"title", n.Title,
		"body", n.Body,
		"tag", n.Tag)
	return nil
}
