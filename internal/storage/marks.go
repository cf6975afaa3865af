package storage

import (
	"context"
	"fmt"
	"time"
)

// Sent-marks record that a (reminder, milestone) pair already produced a
// notification. They are the worker's only de-duplication mechanism and
// live in the same database so they survive worker restarts.

// HasMark reports whether a notification with the given tag was already sent.
func (s *Store) HasMark(ctx context.Context, tag string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_notifications WHERE tag = ?`, tag).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check sent-mark %q: %w", tag, err)
	}
	return n > 0, nil
}

// AddMark records that the tagged notification was emitted. Writing the
// same tag twice is harmless.
func (s *Store) AddMark(ctx context.Context, tag string, reminderID int64, milestone string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sent_notifications (tag, reminder_id, milestone, sent_at) VALUES (?, ?, ?, ?)`,
		tag, reminderID, milestone, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write sent-mark %q: %w", tag, err)
	}
	return nil
}
