package core

import (
	"sort"
	"time"
)

// RecentExpenseCount is how many expenses the dashboard shows.
const RecentExpenseCount = 5

// Snapshot is the read model the dashboard renders. All derived values are
// pure functions of the fetched collections and the wall clock passed to
// BuildSnapshot; nothing here is cached across time.
type Snapshot struct {
	Expenses   []Expense  `json:"expenses"`
	Categories []Category `json:"categories"`
	Reminders  []Reminder `json:"reminders"`
	Settings   Settings   `json:"settings"`

	Today Money `json:"today"`
	Week  Money `json:"week"`
	Month Money `json:"month"`
	Year  Money `json:"year"`

	// BudgetProgress is min(100, month/budget*100), 0 for a zero budget.
	BudgetProgress float64 `json:"budgetProgress"`

	RecentExpenses []Expense `json:"recentExpenses"`
	NextReminder   *Reminder `json:"nextReminder,omitempty"`
}

// BuildSnapshot derives the dashboard read model at the given instant.
// Expenses come out sorted date-descending, reminders ascending.
func BuildSnapshot(expenses []Expense, categories []Category, reminders []Reminder, settings Settings, now time.Time) Snapshot {
	s := Snapshot{
		Expenses:   SortExpensesByDateDesc(expenses),
		Categories: categories,
		Reminders:  SortRemindersByDueAsc(reminders),
		Settings:   settings,
	}

	s.Today = sumWhere(s.Expenses, func(e Expense) bool { return sameDay(e.Date, now) })
	s.Week = sumWhere(s.Expenses, func(e Expense) bool { return sameWeek(e.Date, now) })
	s.Month = sumWhere(s.Expenses, func(e Expense) bool {
		return e.Date.Year() == now.Year() && e.Date.Month() == now.Month()
	})
	s.Year = sumWhere(s.Expenses, func(e Expense) bool { return e.Date.Year() == now.Year() })

	s.BudgetProgress = BudgetProgress(s.Month, settings.MonthlyBudget)
	s.RecentExpenses = s.Expenses
	if len(s.RecentExpenses) > RecentExpenseCount {
		s.RecentExpenses = s.RecentExpenses[:RecentExpenseCount]
	}
	s.NextReminder = NextReminder(s.Reminders, now)

	return s
}

// BudgetProgress returns the spent share of the monthly budget as a
// percentage capped at 100. A zero budget yields 0, never a division.
func BudgetProgress(spent, budget Money) float64 {
	if budget.Cents <= 0 {
		return 0
	}
	p := float64(spent.Cents) / float64(budget.Cents) * 100
	if p > 100 {
		return 100
	}
	return p
}

// NextReminder returns the reminder with the nearest due date not before
// now, or nil when none qualifies. The input must be sorted due-ascending.
func NextReminder(sorted []Reminder, now time.Time) *Reminder {
	for i := range sorted {
		if !sorted[i].Due.Before(now) {
			r := sorted[i]
			return &r
		}
	}
	return nil
}

// SortExpensesByDateDesc returns a copy sorted newest-first.
func SortExpensesByDateDesc(expenses []Expense) []Expense {
	out := make([]Expense, len(expenses))
	copy(out, expenses)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// SortRemindersByDueAsc returns a copy sorted soonest-first.
func SortRemindersByDueAsc(reminders []Reminder) []Reminder {
	out := make([]Reminder, len(reminders))
	copy(out, reminders)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out
}

func sumWhere(expenses []Expense, match func(Expense) bool) Money {
	var total int64
	for _, e := range expenses {
		if match(e) {
			total += e.Amount.Cents
		}
	}
	return Money{Cents: total}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// sameWeek reports whether a falls in the Monday-start week containing b.
func sameWeek(a, b time.Time) bool {
	start := startOfWeek(b)
	end := start.AddDate(0, 0, 7)
	return !a.Before(start) && a.Before(end)
}

// startOfWeek truncates t to the preceding (or same) Monday at midnight.
func startOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(midnight.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return midnight.AddDate(0, 0, -offset)
}
