package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/scanner"
	"tally/internal/services"
	"tally/internal/storage"
)

// Server exposes the JSON API. Handlers translate domain errors into HTTP
// statuses; everything below this layer speaks sentinel errors.
type Server struct {
	http.Server

	store     *storage.Store
	summaries *services.SummaryService
	expenses  *services.ExpenseService
	reminders *services.ReminderService
	backups   *services.BackupService
	scanner   *scanner.Client

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// The scanner client may be nil when no extraction API is configured.
func NewServer(
	addr string,
	store *storage.Store,
	summaries *services.SummaryService,
	expenses *services.ExpenseService,
	reminders *services.ReminderService,
	backups *services.BackupService,
	sc *scanner.Client,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:       store,
		summaries:   summaries,
		expenses:    expenses,
		reminders:   reminders,
		backups:     backups,
		scanner:     sc,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/dashboard", s.wrap(s.handleDashboard))
	mux.HandleFunc("/api/expenses", s.wrap(s.handleExpenses))
	mux.HandleFunc("/api/expenses/", s.wrap(s.handleExpenseByID))
	mux.HandleFunc("/api/categories", s.wrap(s.handleCategories))
	mux.HandleFunc("/api/categories/", s.wrap(s.handleCategoryByID))
	mux.HandleFunc("/api/reminders", s.wrap(s.handleReminders))
	mux.HandleFunc("/api/reminders/", s.wrap(s.handleReminderByID))
	mux.HandleFunc("/api/settings", s.wrap(s.handleSettings))
	mux.HandleFunc("/api/export", s.wrap(s.handleExport))
	mux.HandleFunc("/api/import", s.wrap(s.handleImport))
	mux.HandleFunc("/api/clear", s.wrap(s.handleClear))
	mux.HandleFunc("/api/report", s.wrap(s.handleReport))
	mux.HandleFunc("/api/scan", s.wrap(s.handleScan))

	return s
}

// wrap adds security headers, rate limiting on mutating methods, request ids
// and request logging around a handler.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the store answers before reporting ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.GetSettings(r.Context()); err != nil {
		http.Error(w, "storage not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the rate limiter cleanup goroutine and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
