package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
)

// Receipt uploads larger than this are rejected outright.
const maxScanImageBytes = 10 << 20

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	snap, err := s.summaries.LoadAll(r.Context(), time.Now())
	if err != nil {
		// Serve the last good snapshot if we have one.
		if stale, ok := s.summaries.Current(); ok {
			writeJSON(w, http.StatusOK, stale)
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		expenses, err := s.expenses.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, expenses)

	case http.MethodPost:
		var e core.Expense
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			badRequest(w, "invalid expense payload")
			return
		}
		id, err := s.expenses.Create(r.Context(), e)
		if err != nil {
			writeError(w, r, err)
			return
		}
		e.ID = id
		writeJSON(w, http.StatusCreated, e)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r.URL.Path, "/api/expenses/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var e core.Expense
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			badRequest(w, "invalid expense payload")
			return
		}
		e.ID = id
		if err := s.expenses.Update(r.Context(), e); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)

	case http.MethodDelete:
		if err := s.expenses.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := s.store.ListCategories(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)

	case http.MethodPost:
		var c core.Category
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			badRequest(w, "invalid category payload")
			return
		}
		if err := c.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
		id, err := s.store.AddCategory(r.Context(), c)
		if err != nil {
			writeError(w, r, err)
			return
		}
		c.ID = id
		writeJSON(w, http.StatusCreated, c)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id, ok := idFromPath(w, r.URL.Path, "/api/categories/")
	if !ok {
		return
	}
	if err := s.store.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		reminders, err := s.reminders.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reminders)

	case http.MethodPost:
		var rem core.Reminder
		if err := json.NewDecoder(r.Body).Decode(&rem); err != nil {
			badRequest(w, "invalid reminder payload")
			return
		}
		id, err := s.reminders.Create(r.Context(), rem)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rem.ID = id
		writeJSON(w, http.StatusCreated, rem)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleReminderByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id, ok := idFromPath(w, r.URL.Path, "/api/reminders/")
	if !ok {
		return
	}
	if err := s.reminders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.store.GetSettings(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	case http.MethodPut:
		var settings core.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			badRequest(w, "invalid settings payload")
			return
		}
		if err := settings.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.store.UpdateSettings(r.Context(), settings); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	doc, err := s.backups.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="tally-backup.json"`)
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var doc core.Backup
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		badRequest(w, "invalid backup document")
		return
	}
	if err := s.backups.Import(r.Context(), doc); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.backups.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rows, err := s.backups.Report(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleScan accepts a raw image body and responds with a draft expense. The
// draft is not saved; the client reviews it and posts to /api/expenses.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.scanner == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "receipt scanning is not configured"})
		return
	}

	image, err := io.ReadAll(io.LimitReader(r.Body, maxScanImageBytes+1))
	if err != nil {
		badRequest(w, "could not read image")
		return
	}
	if len(image) == 0 {
		badRequest(w, "empty image")
		return
	}
	if len(image) > maxScanImageBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "image too large"})
		return
	}

	result, err := s.scanner.ScanReceipt(r.Context(), image, r.Header.Get("Content-Type"))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	draft, err := result.Sanitize(time.Now(), categories)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, draft)
}

// idFromPath extracts the numeric id after prefix, writing a 400 on failure.
func idFromPath(w http.ResponseWriter, path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		badRequest(w, "invalid id")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}
