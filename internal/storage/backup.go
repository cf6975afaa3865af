package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"tally/internal/core"
)

// ExportAll reads the four collections into one portable document. No
// transformation: the document carries store-assigned ids as-is.
func (s *Store) ExportAll(ctx context.Context) (core.Backup, error) {
	expenses, err := s.ListExpenses(ctx)
	if err != nil {
		return core.Backup{}, fmt.Errorf("export: %w", err)
	}
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return core.Backup{}, fmt.Errorf("export: %w", err)
	}
	reminders, err := s.ListReminders(ctx)
	if err != nil {
		return core.Backup{}, fmt.Errorf("export: %w", err)
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return core.Backup{}, fmt.Errorf("export: %w", err)
	}

	return core.Backup{
		Expenses:   expenses,
		Categories: categories,
		Reminders:  reminders,
		Settings:   &settings,
	}, nil
}

// ImportAll restores a backup document in one all-or-nothing transaction.
//
// Collections present in the document are replaced wholesale (clear, then
// insert with ids stripped so the store reassigns its own). An absent
// collection is left untouched. Categories are special: the default set is
// re-inserted unconditionally, then supplied names that are not default
// names; dedup is by the unique-name constraint. Settings are merged into
// the singleton, never cleared.
func (s *Store) ImportAll(ctx context.Context, doc core.Backup) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if doc.Expenses != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
				return fmt.Errorf("clear expenses: %w", err)
			}
			for _, e := range doc.Expenses {
				if err := insertExpenseTx(ctx, tx, e); err != nil {
					return err
				}
			}
		}

		if doc.Categories != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
				return fmt.Errorf("clear categories: %w", err)
			}
			for _, name := range core.DefaultCategories {
				if _, err := tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name); err != nil {
					return fmt.Errorf("restore default category %q: %w", name, err)
				}
			}
			for _, c := range doc.Categories {
				if core.IsDefaultCategory(c.Name) {
					continue
				}
				if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?)`, c.Name); err != nil {
					return fmt.Errorf("import category %q: %w", c.Name, err)
				}
			}
		}

		if doc.Reminders != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM reminders`); err != nil {
				return fmt.Errorf("clear reminders: %w", err)
			}
			for _, r := range doc.Reminders {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO reminders (title, amount_cents, due) VALUES (?, ?, ?)`,
					r.Title, r.Amount.Cents, formatTime(r.Due)); err != nil {
					return fmt.Errorf("import reminder %q: %w", r.Title, err)
				}
			}
		}

		if doc.Settings != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO settings (id, monthly_budget_cents) VALUES (?, ?)
				 ON CONFLICT(id) DO UPDATE SET monthly_budget_cents = excluded.monthly_budget_cents`,
				core.SettingsID, doc.Settings.MonthlyBudget.Cents); err != nil {
				return fmt.Errorf("import settings: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Import completed",
		"expenses", len(doc.Expenses),
		"categories", len(doc.Categories),
		"reminders", len(doc.Reminders),
		"settings", doc.Settings != nil)
	return nil
}

// ClearAll empties every collection (sent-marks included) and immediately
// re-seeds defaults, all in one transaction, so the application never
// observes zero categories or missing settings.
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"expenses", "categories", "reminders", "settings", "sent_notifications"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return seedDefaultsTx(ctx, tx)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "All data cleared, defaults restored")
	return nil
}
