package scanner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tally/internal/core"
)

// ScanResult is the provisional, loosely-typed output of the model. Every
// field may be missing, empty or nonsense.
type ScanResult struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	PaymentMode string `json:"paymentMode"`
}

// parseScanResult extracts the JSON object from the raw model text. Models
// sometimes wrap their answer in markdown fences or prose despite the prompt.
func parseScanResult(content string) (ScanResult, error) {
	content = stripMarkdownFences(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ScanResult{}, fmt.Errorf("no JSON object in model output")
	}

	var res ScanResult
	if err := json.Unmarshal([]byte(content[start:end+1]), &res); err != nil {
		return ScanResult{}, fmt.Errorf("parse model output: %w", err)
	}
	return res, nil
}

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// Sanitize turns the untrusted result into a draft expense, field by field:
// the amount must parse to a positive value, everything else falls back to a
// safe default. The draft still goes through normal validation on save.
func (r ScanResult) Sanitize(now time.Time, categories []core.Category) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Amount))
	if err != nil || cents <= 0 {
		return core.Expense{}, fmt.Errorf("scanned amount %q: %w", r.Amount, core.ErrInvalidAmount)
	}

	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = "Scanned expense"
	}

	date := now
	if parsed, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date)); err == nil {
		date = parsed
	}

	category := core.DefaultCategoryName
	for _, c := range categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(r.Category)) {
			category = c.Name
			break
		}
	}

	mode := core.PaymentMode(strings.TrimSpace(r.PaymentMode))
	if !mode.Valid() {
		mode = core.Other
	}

	return core.Expense{
		Title:       title,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Category:    category,
		PaymentMode: mode,
	}, nil
}
