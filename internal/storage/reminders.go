package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"tally/internal/core"
)

// ListReminders returns all reminders sorted due-ascending. Sorting happens
// on the parsed times: stored strings carry their original offsets, so text
// order is not chronological order.
func (s *Store) ListReminders(ctx context.Context) ([]core.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, amount_cents, due FROM reminders`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []core.Reminder
	for rows.Next() {
		var (
			r   core.Reminder
			due string
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Amount.Cents, &due); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		t, err := parseTime(due)
		if err != nil {
			return nil, err
		}
		r.Due = t
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out, nil
}

// AddReminder inserts the reminder and returns the assigned id.
func (s *Store) AddReminder(ctx context.Context, r core.Reminder) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (title, amount_cents, due) VALUES (?, ?, ?)`,
		r.Title, r.Amount.Cents, formatTime(r.Due))
	if err != nil {
		return 0, fmt.Errorf("add reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add reminder id: %w", err)
	}

	slog.InfoContext(ctx, "Reminder saved", "id", id, "title", r.Title, "due", r.Due)
	return id, nil
}

// DeleteReminder removes the reminder with the given id. The worker finds
// out implicitly: the next check cycle no longer sees it.
func (s *Store) DeleteReminder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete reminder %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeletePastReminders removes reminders whose due date is before cutoff.
// Housekeeping policy, not a correctness invariant. The cutoff comparison
// runs on parsed times for the same reason ListReminders sorts in Go.
func (s *Store) DeletePastReminders(ctx context.Context, cutoff time.Time) (int64, error) {
	reminders, err := s.ListReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete past reminders: %w", err)
	}

	var n int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range reminders {
			if !r.Due.Before(cutoff) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, r.ID); err != nil {
				return fmt.Errorf("delete past reminder %d: %w", r.ID, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pruned past reminders", "count", n)
	}
	return n, nil
}
