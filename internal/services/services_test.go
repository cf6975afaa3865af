package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store := storage.New(filepath.Join(t.TempDir(), "tally.db"))
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestExpenseServiceCreateValidates(t *testing.T) {
	s := NewExpenseService(newTestStore(t))
	ctx := context.Background()

	_, err := s.Create(ctx, core.Expense{
		Title:       "",
		Amount:      core.Money{Cents: 100},
		Date:        time.Now(),
		Category:    "Food",
		PaymentMode: core.Cash,
	})
	if !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}

	id, err := s.Create(ctx, core.Expense{
		Title:       "Coffee",
		Amount:      core.Money{Cents: 350},
		Date:        time.Now(),
		Category:    "Food",
		PaymentMode: core.Cash,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}
}

func TestExpenseServiceUpdateRequiresID(t *testing.T) {
	s := NewExpenseService(newTestStore(t))

	err := s.Update(context.Background(), core.Expense{
		Title:       "Coffee",
		Amount:      core.Money{Cents: 350},
		Date:        time.Now(),
		Category:    "Food",
		PaymentMode: core.Cash,
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestReminderServiceCreateWithoutAMQP(t *testing.T) {
	store := newTestStore(t)
	s := NewReminderService(store, nil)
	ctx := context.Background()

	id, err := s.Create(ctx, core.Reminder{
		Title: "Rent",
		Due:   time.Now().AddDate(0, 0, 3),
	})
	if err != nil {
		t.Fatalf("create without amqp should succeed: %v", err)
	}

	reminders, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reminders) != 1 || reminders[0].ID != id {
		t.Fatalf("unexpected reminders: %+v", reminders)
	}
}

func TestReminderServicePrunePast(t *testing.T) {
	store := newTestStore(t)
	s := NewReminderService(store, nil)
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	for _, r := range []core.Reminder{
		{Title: "Old", Due: now.AddDate(0, 0, -2)},
		{Title: "Today", Due: now.Add(2 * time.Hour)},
		{Title: "Future", Due: now.AddDate(0, 0, 4)},
	} {
		if _, err := store.AddReminder(ctx, r); err != nil {
			t.Fatalf("add reminder: %v", err)
		}
	}

	if err := s.PrunePast(ctx, now); err != nil {
		t.Fatalf("prune: %v", err)
	}

	reminders, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reminders) != 2 {
		t.Fatalf("expected 2 reminders after prune, got %d", len(reminders))
	}
	for _, r := range reminders {
		if r.Title == "Old" {
			t.Fatal("past reminder should have been pruned")
		}
	}
}

func TestSummaryServiceLoadAll(t *testing.T) {
	store := newTestStore(t)
	s := NewSummaryService(store)
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

	if _, ok := s.Current(); ok {
		t.Fatal("expected no snapshot before first load")
	}

	for _, e := range []core.Expense{
		{Title: "Coffee", Amount: core.Money{Cents: 350}, Date: now, Category: "Food", PaymentMode: core.Cash},
		{Title: "Groceries", Amount: core.Money{Cents: 4200}, Date: now.AddDate(0, 0, -1), Category: "Food", PaymentMode: core.Card},
	} {
		if _, err := store.AddExpense(ctx, e); err != nil {
			t.Fatalf("add expense: %v", err)
		}
	}
	if err := store.UpdateSettings(ctx, core.Settings{MonthlyBudget: core.Money{Cents: 10000}}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	snap, err := s.LoadAll(ctx, now)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}

	if snap.Today.Cents != 350 {
		t.Fatalf("expected today 350, got %d", snap.Today.Cents)
	}
	if snap.Month.Cents != 4550 {
		t.Fatalf("expected month 4550, got %d", snap.Month.Cents)
	}
	if snap.BudgetProgress != 45.5 {
		t.Fatalf("expected budget progress 45.5, got %v", snap.BudgetProgress)
	}
	if len(snap.RecentExpenses) != 2 || snap.RecentExpenses[0].Title != "Coffee" {
		t.Fatalf("unexpected recent expenses: %+v", snap.RecentExpenses)
	}

	cached, ok := s.Current()
	if !ok {
		t.Fatal("expected cached snapshot after load")
	}
	if cached.Month.Cents != snap.Month.Cents {
		t.Fatalf("cached snapshot differs: %+v", cached)
	}
}

func TestBackupServiceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	s := NewBackupService(store)
	ctx := context.Background()

	if _, err := store.AddExpense(ctx, core.Expense{
		Title: "Coffee", Amount: core.Money{Cents: 350}, Date: time.Now(),
		Category: "Food", PaymentMode: core.Cash,
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	doc, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(doc.Expenses) != 1 || doc.Settings == nil {
		t.Fatalf("unexpected export doc: %+v", doc)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	after, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("export after clear: %v", err)
	}
	if len(after.Expenses) != 0 {
		t.Fatalf("expected no expenses after clear, got %d", len(after.Expenses))
	}
	if len(after.Categories) != len(core.DefaultCategories) {
		t.Fatalf("expected default categories after clear, got %d", len(after.Categories))
	}

	if err := s.Import(ctx, doc); err != nil {
		t.Fatalf("import: %v", err)
	}
	restored, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("export after import: %v", err)
	}
	if len(restored.Expenses) != 1 || restored.Expenses[0].Title != "Coffee" {
		t.Fatalf("unexpected restored expenses: %+v", restored.Expenses)
	}
}

func TestBackupServiceReport(t *testing.T) {
	store := newTestStore(t)
	s := NewBackupService(store)
	ctx := context.Background()

	for _, e := range []core.Expense{
		{Title: "Coffee", Amount: core.Money{Cents: 350}, Date: time.Now(), Category: "Food", PaymentMode: core.Cash},
		{Title: "Taxi", Amount: core.Money{Cents: 1200}, Date: time.Now(), Category: "Transport", PaymentMode: core.Card},
	} {
		if _, err := store.AddExpense(ctx, e); err != nil {
			t.Fatalf("add expense: %v", err)
		}
	}

	rows, err := s.Report(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 2 rows plus total, got %d", len(rows))
	}
	total := rows[len(rows)-1]
	if total.Amount != "15.50" {
		t.Fatalf("expected total 15.50, got %q", total.Amount)
	}
}
