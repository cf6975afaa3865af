package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/core"
)

// ListCategories returns all categories sorted by name.
func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// AddCategory inserts a category; names are unique, a duplicate surfaces
// as the engine's constraint error.
func (s *Store) AddCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
	if err != nil {
		return 0, fmt.Errorf("add category %q: %w", c.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add category id: %w", err)
	}
	return id, nil
}

// DeleteCategory removes a category by id. Deleting a category bearing a
// default name is rejected with ErrProtectedCategory and mutates nothing.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read category %d: %w", id, err)
	}
	if core.IsDefaultCategory(name) {
		slog.WarnContext(ctx, "Refused to delete default category", "id", id, "name", name)
		return fmt.Errorf("category %q: %w", name, ErrProtectedCategory)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}
