package core

// ReportRow is one line of the tabular expense report.
type ReportRow struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	PaymentMode string `json:"paymentMode"`
	Amount      string `json:"amount"`
}

// GenerateReport produces the expense rows in the given order plus a
// trailing total row. Rendering to a document format is the caller's
// business; this is a pure transformation.
func GenerateReport(expenses []Expense) []ReportRow {
	rows := make([]ReportRow, 0, len(expenses)+1)
	var total int64
	for _, e := range expenses {
		rows = append(rows, ReportRow{
			Date:        e.Date.Format("2006-01-02"),
			Title:       e.Title,
			Category:    e.Category,
			PaymentMode: string(e.PaymentMode),
			Amount:      e.Amount.String(),
		})
		total += e.Amount.Cents
	}
	rows = append(rows, ReportRow{
		Title:  "Total",
		Amount: Money{Cents: total}.String(),
	})
	return rows
}
