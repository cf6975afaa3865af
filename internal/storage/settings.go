package storage

import (
	"context"
	"fmt"

	"tally/internal/core"
)

// GetSettings returns the singleton settings row. It exists from the first
// Open onwards; a missing row means the database was tampered with.
func (s *Store) GetSettings(ctx context.Context) (core.Settings, error) {
	var out core.Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT id, monthly_budget_cents FROM settings WHERE id = ?`, core.SettingsID).
		Scan(&out.ID, &out.MonthlyBudget.Cents)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return out, nil
}

// UpdateSettings upserts the singleton row; the id is forced to the fixed
// key regardless of what the caller supplies.
func (s *Store) UpdateSettings(ctx context.Context, settings core.Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (id, monthly_budget_cents) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET monthly_budget_cents = excluded.monthly_budget_cents`,
		core.SettingsID, settings.MonthlyBudget.Cents)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
