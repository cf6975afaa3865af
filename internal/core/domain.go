package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Cash   PaymentMode = "Cash"
	Card   PaymentMode = "Card"
	Online PaymentMode = "Online"
	Other  PaymentMode = "Other"
)

// SettingsID is the fixed key of the singleton settings row.
const SettingsID int64 = 1

// DefaultCategoryName is the fallback category for scanned or uncategorized
// expenses. It is always part of DefaultCategories.
const DefaultCategoryName = "Other"

// DefaultCategories are seeded on first run and cannot be deleted.
var DefaultCategories = []string{
	"Food",
	"Transport",
	"Shopping",
	"Bills",
	"Entertainment",
	"Health",
	"Other",
}

type (
	PaymentMode string

	Expense struct {
		ID          int64       `json:"id"`
		Title       string      `json:"title"`
		Amount      Money       `json:"amount"`
		Date        time.Time   `json:"date"`
		Category    string      `json:"category"`
		PaymentMode PaymentMode `json:"paymentMode"`
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Reminder struct {
		ID     int64     `json:"id"`
		Title  string    `json:"title"`
		Amount Money     `json:"amount"`
		Due    time.Time `json:"date"`
	}

	Settings struct {
		ID            int64 `json:"id"`
		MonthlyBudget Money `json:"monthlyBudget"`
	}

	// Backup is the portable export/import document. A nil slice or a nil
	// Settings means the collection was absent from the document and is
	// left untouched on import.
	Backup struct {
		Expenses   []Expense  `json:"expenses,omitempty"`
		Categories []Category `json:"categories,omitempty"`
		Reminders  []Reminder `json:"reminders,omitempty"`
		Settings   *Settings  `json:"settings,omitempty"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyTitle         = errors.New("empty title")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidPaymentMode = errors.New("invalid payment mode")
	ErrZeroDate           = errors.New("date cannot be zero")
	ErrNegativeBudget     = errors.New("monthly budget cannot be negative")
)

// Valid reports whether m is one of the fixed payment modes.
func (m PaymentMode) Valid() bool {
	switch m {
	case Cash, Card, Online, Other:
		return true
	}
	return false
}

// IsDefaultCategory reports whether name is in the protected seed set.
// Matching is case-sensitive.
func IsDefaultCategory(name string) bool {
	for _, d := range DefaultCategories {
		if d == name {
			return true
		}
	}
	return false
}

func validateTitle(title string) error {
	if len(strings.TrimSpace(title)) == 0 {
		return ErrEmptyTitle
	}
	if len(title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	return nil
}

func (e Expense) Validate() error {
	if err := validateTitle(e.Title); err != nil {
		return err
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if !e.PaymentMode.Valid() {
		return ErrInvalidPaymentMode
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return errors.New("empty category name")
	}
	if len(c.Name) > 100 {
		return errors.New("category name too long (max 100 characters)")
	}
	return nil
}

func (r Reminder) Validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	// Amount is informational and may be zero, never negative.
	if r.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if r.Due.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (s Settings) Validate() error {
	if s.MonthlyBudget.Cents < 0 {
		return ErrNegativeBudget
	}
	return nil
}
