package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/core"
	"tally/internal/storage"
)

// ExpenseService validates expenses before they touch the store.
type ExpenseService struct {
	store *storage.Store
}

func NewExpenseService(store *storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

// Create validates and persists a new expense, returning its assigned id.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.AddExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"id", id,
		"title", e.Title,
		"amount_cents", e.Amount.Cents)

	return id, nil
}

// Update replaces the expense with the given id wholesale.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == 0 {
		return fmt.Errorf("update expense: missing id: %w", storage.ErrNotFound)
	}
	return s.store.UpdateExpense(ctx, e)
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteExpense(ctx, id)
}
