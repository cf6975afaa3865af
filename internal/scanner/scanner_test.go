package scanner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tally/internal/core"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func TestScanReceipt(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(chatReply(`{"title":"Coffee","amount":"3.50","date":"2025-03-12","category":"Food","paymentMode":"Card"}`)))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4o-mini")
	res, err := c.ScanReceipt(context.Background(), []byte("fake-image"), "image/png")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Title != "Coffee" || res.Amount != "3.50" || res.Category != "Food" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Fatalf("expected model in request, got %v", gotBody["model"])
	}
}

func TestScanReceiptAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4o-mini")
	if _, err := c.ScanReceipt(context.Background(), []byte("img"), ""); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestParseScanResultMarkdownFences(t *testing.T) {
	content := "```json\n{\"title\":\"Taxi\",\"amount\":\"12.00\"}\n```"
	res, err := parseScanResult(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Title != "Taxi" || res.Amount != "12.00" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestParseScanResultProseWrapped(t *testing.T) {
	content := `Here is the extracted expense: {"title":"Lunch","amount":"9.90"} hope that helps!`
	res, err := parseScanResult(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Title != "Lunch" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestParseScanResultNoJSON(t *testing.T) {
	if _, err := parseScanResult("I could not read the receipt, sorry."); err == nil {
		t.Fatal("expected error when output has no JSON object")
	}
}

func TestSanitize(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	categories := []core.Category{{Name: "Food"}, {Name: "Transport"}, {Name: "Other"}}

	tests := []struct {
		name    string
		in      ScanResult
		wantErr bool
		check   func(t *testing.T, e core.Expense)
	}{
		{
			name: "all fields valid",
			in:   ScanResult{Title: "Coffee", Amount: "3.50", Date: "2025-03-10", Category: "food", PaymentMode: "Card"},
			check: func(t *testing.T, e core.Expense) {
				if e.Amount.Cents != 350 || e.Category != "Food" || e.PaymentMode != core.Card {
					t.Fatalf("unexpected expense: %+v", e)
				}
				if !e.Date.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
					t.Fatalf("unexpected date: %v", e.Date)
				}
			},
		},
		{
			name:    "missing amount rejected",
			in:      ScanResult{Title: "Coffee"},
			wantErr: true,
		},
		{
			name:    "negative amount rejected",
			in:      ScanResult{Title: "Refund", Amount: "-5.00"},
			wantErr: true,
		},
		{
			name: "unknown fields fall back",
			in:   ScanResult{Amount: "20", Date: "soon", Category: "Spaceships", PaymentMode: "Barter"},
			check: func(t *testing.T, e core.Expense) {
				if e.Title != "Scanned expense" {
					t.Fatalf("expected fallback title, got %q", e.Title)
				}
				if !e.Date.Equal(now) {
					t.Fatalf("expected fallback date, got %v", e.Date)
				}
				if e.Category != core.DefaultCategoryName || e.PaymentMode != core.Other {
					t.Fatalf("expected fallbacks, got category=%q mode=%q", e.Category, e.PaymentMode)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.in.Sanitize(now, categories)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("sanitize: %v", err)
			}
			if err := e.Validate(); err != nil {
				t.Fatalf("draft should validate: %v", err)
			}
			tt.check(t, e)
		})
	}
}
