package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func TestParseTransactionFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		wantErr bool
		check   func(t *testing.T, f store.TransactionFilter)
	}{
		{
			name:  "empty query matches everything",
			query: url.Values{},
			check: func(t *testing.T, f store.TransactionFilter) {
				if f.Type != "" || !f.From.IsZero() || !f.To.IsZero() {
					t.Errorf("unexpected filter %+v", f)
				}
			},
		},
		{
			name:  "all fields",
			query: url.Values{"type": {"Expense"}, "categoryId": {" c1 "}, "accountId": {"a1"}, "from": {"2024-03-01"}, "to": {"2024-03-31"}},
			check: func(t *testing.T, f store.TransactionFilter) {
				if f.Type != core.TypeExpense || f.CategoryID != "c1" || f.AccountID != "a1" {
					t.Errorf("unexpected filter %+v", f)
				}
				if !f.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || !f.To.Equal(time.Date(2024, 3, 31, 23, 59, 59, 999_000_000, time.UTC)) {
					t.Errorf("unexpected range %v..%v", f.From, f.To)
				}
			},
		},
		{
			name:  "rfc3339 dates are truncated to the day",
			query: url.Values{"from": {"2024-03-01T18:30:00Z"}},
			check: func(t *testing.T, f store.TransactionFilter) {
				if !f.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("From = %v", f.From)
				}
			},
		},
		{
			name:  "rfc3339 offsets resolve to the UTC day",
			query: url.Values{"from": {"2024-03-01T23:30:00-02:00"}, "to": {"2024-03-03T00:15:00+02:00"}},
			check: func(t *testing.T, f store.TransactionFilter) {
				if !f.From.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("From = %v", f.From)
				}
				if !f.To.Equal(time.Date(2024, 3, 2, 23, 59, 59, 999_000_000, time.UTC)) {
					t.Errorf("To = %v", f.To)
				}
			},
		},
		{
			name:  "same day range",
			query: url.Values{"from": {"2024-03-05"}, "to": {"2024-03-05"}},
			check: func(t *testing.T, f store.TransactionFilter) {
				if f.To.Sub(f.From) != 24*time.Hour-time.Millisecond {
					t.Errorf("range %v..%v does not span the day", f.From, f.To)
				}
			},
		},
		{name: "unknown type", query: url.Values{"type": {"refund"}}, wantErr: true},
		{name: "bad date", query: url.Values{"to": {"31/03/2024"}}, wantErr: true},
		{name: "inverted range", query: url.Values{"from": {"2024-04-01"}, "to": {"2024-03-01"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseTransactionFilter(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTransactionFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if core.Kind(err) != core.ErrValidation {
					t.Errorf("error kind = %v, want validation", core.Kind(err))
				}
				return
			}
			tt.check(t, f)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"Food"}`, ""},
		{"empty", ``, "request body is empty"},
		{"unknown field", `{"name":"Food","extra":1}`, "unknown field"},
		{"trailing object", `{"name":"a"}{"name":"b"}`, "single JSON object"},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), r, &p)
			if tt.wantErr == "" {
				if err != nil || p.Name != "Food" {
					t.Fatalf("decodeJSON() = %v, %+v", err, p)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("decodeJSON() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Rent\x00\x07 March\t"); got != "Rent March" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
