package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	"tally/internal/storage"
)

// SummaryService builds dashboard snapshots from the store. A failed load
// keeps the previous snapshot around so the dashboard can keep rendering
// stale-but-consistent data.
type SummaryService struct {
	store *storage.Store

	mu      sync.RWMutex
	current *core.Snapshot
}

func NewSummaryService(store *storage.Store) *SummaryService {
	return &SummaryService{store: store}
}

// LoadAll fetches the four collections in parallel and derives a fresh
// snapshot for the given instant. Any fetch failure returns a single wrapped
// error and leaves the previous snapshot in place.
func (s *SummaryService) LoadAll(ctx context.Context, now time.Time) (core.Snapshot, error) {
	var (
		expenses   []core.Expense
		categories []core.Category
		reminders  []core.Reminder
		settings   core.Settings
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpenses(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reminders, err = s.store.ListReminders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.store.GetSettings(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return core.Snapshot{}, fmt.Errorf("load dashboard data: %w", err)
	}

	snap := core.BuildSnapshot(expenses, categories, reminders, settings, now)

	s.mu.Lock()
	s.current = &snap
	s.mu.Unlock()

	return snap, nil
}

// Current returns the last successfully built snapshot, or false when no load
// has succeeded yet.
func (s *SummaryService) Current() (core.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return core.Snapshot{}, false
	}
	return *s.current, true
}
