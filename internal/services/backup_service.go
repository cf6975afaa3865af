package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/core"
	"tally/internal/storage"
)

// BackupService covers export, import, full reset and report generation.
type BackupService struct {
	store *storage.Store
}

func NewBackupService(store *storage.Store) *BackupService {
	return &BackupService{store: store}
}

func (s *BackupService) Export(ctx context.Context) (core.Backup, error) {
	return s.store.ExportAll(ctx)
}

// Import replaces the collections present in the document. Absent collections
// stay untouched; the whole operation is one transaction.
func (s *BackupService) Import(ctx context.Context, doc core.Backup) error {
	if err := s.store.ImportAll(ctx, doc); err != nil {
		return fmt.Errorf("import backup: %w", err)
	}

	slog.InfoContext(ctx, "Backup imported",
		"expenses", len(doc.Expenses),
		"categories", len(doc.Categories),
		"reminders", len(doc.Reminders),
		"has_settings", doc.Settings != nil)

	return nil
}

// Clear wipes all data and re-seeds defaults.
func (s *BackupService) Clear(ctx context.Context) error {
	return s.store.ClearAll(ctx)
}

// Report renders the current expenses as ordered rows with a trailing total.
func (s *BackupService) Report(ctx context.Context) ([]core.ReportRow, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load expenses for report: %w", err)
	}
	return core.GenerateReport(expenses), nil
}
