package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"tally/internal/core"
)

// ListExpenses returns every expense, unsorted. Callers that need a
// particular order sort in the read model.
func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, amount_cents, date, category, payment_mode FROM expenses`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// AddExpense inserts the expense and returns the id assigned by the store.
// The incoming ID field is ignored.
func (s *Store) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (title, amount_cents, date, category, payment_mode) VALUES (?, ?, ?, ?, ?)`,
		e.Title, e.Amount.Cents, formatTime(e.Date), e.Category, string(e.PaymentMode))
	if err != nil {
		return 0, fmt.Errorf("add expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"title", e.Title,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	return id, nil
}

// UpdateExpense fully replaces the record with e.ID (upsert semantics).
func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO expenses (id, title, amount_cents, date, category, payment_mode) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Amount.Cents, formatTime(e.Date), e.Category, string(e.PaymentMode))
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return nil
}

// DeleteExpense removes the expense with the given id.
func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete expense %d: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(r rowScanner) (core.Expense, error) {
	var (
		e     core.Expense
		date  string
		mode  string
	)
	if err := r.Scan(&e.ID, &e.Title, &e.Amount.Cents, &date, &e.Category, &mode); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	t, err := parseTime(date)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = t
	e.PaymentMode = core.PaymentMode(mode)
	return e, nil
}

func insertExpenseTx(ctx context.Context, tx *sql.Tx, e core.Expense) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (title, amount_cents, date, category, payment_mode) VALUES (?, ?, ?, ?, ?)`,
		e.Title, e.Amount.Cents, formatTime(e.Date), e.Category, string(e.PaymentMode))
	if err != nil {
		return fmt.Errorf("insert expense %q: %w", e.Title, err)
	}
	return nil
}
