package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/notify"
	"tally/internal/storage"
)

type fakeNotifier struct {
	sent []notify.Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n notify.Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

func newTestWorker(t *testing.T) (*ReminderWorker, *storage.Store, *fakeNotifier) {
	t.Helper()
	store := storage.New(filepath.Join(t.TempDir(), "tally.db"))
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	fn := &fakeNotifier{}
	return NewReminderWorker(store, fn, time.Minute), store, fn
}

func addReminder(t *testing.T, store *storage.Store, title string, due time.Time) int64 {
	t.Helper()
	id, err := store.AddReminder(context.Background(), core.Reminder{
		Title:  title,
		Amount: core.Money{Cents: 80000},
		Due:    due,
	})
	if err != nil {
		t.Fatalf("add reminder: %v", err)
	}
	return id
}

func TestCheckCycleMilestones(t *testing.T) {
	w, store, fn := newTestWorker(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	addReminder(t, store, "Rent", now.AddDate(0, 0, 1))
	addReminder(t, store, "Gym", now)
	addReminder(t, store, "Insurance", now.AddDate(0, 0, 5))
	addReminder(t, store, "Old bill", now.AddDate(0, 0, -3))

	if err := w.CheckCycle(ctx, now); err != nil {
		t.Fatalf("check cycle: %v", err)
	}

	if len(fn.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d: %+v", len(fn.sent), fn.sent)
	}
	tags := map[string]bool{}
	for _, n := range fn.sent {
		tags[n.Tag] = true
	}
	if !tags["reminder-1day-1"] || !tags["reminder-today-2"] {
		t.Fatalf("unexpected tags: %v", tags)
	}
}

func TestCheckCycleAtMostOncePerMilestone(t *testing.T) {
	w, store, fn := newTestWorker(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	id := addReminder(t, store, "Rent", now.AddDate(0, 0, 1))

	// Two cycles a day ahead: only the first notifies.
	if err := w.CheckCycle(ctx, now); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if err := w.CheckCycle(ctx, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(fn.sent) != 1 {
		t.Fatalf("expected 1 notification after repeated cycles, got %d", len(fn.sent))
	}

	// Next day the today milestone fires exactly once more.
	dueDay := now.AddDate(0, 0, 1)
	if err := w.CheckCycle(ctx, dueDay); err != nil {
		t.Fatalf("due-day cycle: %v", err)
	}
	if err := w.CheckCycle(ctx, dueDay.Add(time.Hour)); err != nil {
		t.Fatalf("repeat due-day cycle: %v", err)
	}
	if len(fn.sent) != 2 {
		t.Fatalf("expected 2 notifications total, got %d", len(fn.sent))
	}
	last := fn.sent[1]
	wantTag := fmt.Sprintf("reminder-today-%d", id)
	if last.Tag != wantTag {
		t.Fatalf("expected tag %q, got %q", wantTag, last.Tag)
	}
}

func TestCheckCycleMarksEvenOnSendError(t *testing.T) {
	w, store, fn := newTestWorker(t)
	fn.err = errors.New("ntfy unreachable")
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	addReminder(t, store, "Rent", now)

	if err := w.CheckCycle(ctx, now); err != nil {
		t.Fatalf("check cycle: %v", err)
	}

	// Delivery failed but the mark persists, so a retry does not double-send.
	fn.err = nil
	if err := w.CheckCycle(ctx, now.Add(time.Hour)); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(fn.sent) != 1 {
		t.Fatalf("expected no retry after failed delivery, got %d notifications", len(fn.sent))
	}
}

// faultyStore wraps in-memory reminders with a mark table whose writes can
// be made to fail for chosen tags.
type faultyStore struct {
	reminders  []core.Reminder
	marks      map[string]bool
	failMarkOn string
}

func newFaultyStore(reminders []core.Reminder) *faultyStore {
	return &faultyStore{reminders: reminders, marks: map[string]bool{}}
}

func (f *faultyStore) ListReminders(_ context.Context) ([]core.Reminder, error) {
	return f.reminders, nil
}

func (f *faultyStore) HasMark(_ context.Context, tag string) (bool, error) {
	return f.marks[tag], nil
}

func (f *faultyStore) AddMark(_ context.Context, tag string, _ int64, _ string) error {
	if tag == f.failMarkOn {
		return errors.New("disk full")
	}
	f.marks[tag] = true
	return nil
}

func TestCheckCycleContinuesPastFailingReminder(t *testing.T) {
	now := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	store := newFaultyStore([]core.Reminder{
		{ID: 1, Title: "Rent", Due: now},
		{ID: 2, Title: "Gym", Due: now},
	})
	store.failMarkOn = "reminder-today-1"
	fn := &fakeNotifier{}
	w := NewReminderWorker(store, fn, time.Minute)

	if err := w.CheckCycle(context.Background(), now); err != nil {
		t.Fatalf("check cycle: %v", err)
	}

	// Both reminders got their notification despite the failed mark write.
	if len(fn.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d: %+v", len(fn.sent), fn.sent)
	}
	if !store.marks["reminder-today-2"] {
		t.Fatal("second reminder's mark should have been written")
	}
}

func TestHandleReminderAdded(t *testing.T) {
	w, store, fn := newTestWorker(t)
	ctx := context.Background()
	now := time.Now()

	id := addReminder(t, store, "Rent", now.AddDate(0, 0, 1))

	msg := &amqp.ReminderAddedMessage{ID: id, Title: "Rent", Due: now.AddDate(0, 0, 1)}
	if err := w.HandleReminderAdded(ctx, msg); err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if len(fn.sent) != 1 {
		t.Fatalf("expected immediate notification for a next-day reminder, got %d", len(fn.sent))
	}

	// A far-future reminder does not trigger a check.
	farID := addReminder(t, store, "Insurance", now.AddDate(0, 0, 30))
	far := &amqp.ReminderAddedMessage{ID: farID, Title: "Insurance", Due: now.AddDate(0, 0, 30)}
	if err := w.HandleReminderAdded(ctx, far); err != nil {
		t.Fatalf("handle far message: %v", err)
	}
	if len(fn.sent) != 1 {
		t.Fatalf("expected no extra notification, got %d", len(fn.sent))
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2025, 3, 12, 23, 30, 0, 0, time.UTC)
	tests := []struct {
		due  time.Time
		want int
	}{
		{time.Date(2025, 3, 12, 0, 15, 0, 0, time.UTC), 0},
		{time.Date(2025, 3, 13, 1, 0, 0, 0, time.UTC), 1},
		// Calendar days count in each timestamp's own zone: this instant is
		// Mar 12 in UTC but Mar 13 for the client who entered it.
		{time.Date(2025, 3, 13, 1, 0, 0, 0, time.FixedZone("", 5*3600)), 1},
		{time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC), 8},
		{time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), -2},
	}
	for _, tt := range tests {
		if got := daysUntil(now, tt.due); got != tt.want {
			t.Errorf("daysUntil(%v) = %d, want %d", tt.due, got, tt.want)
		}
	}
}
