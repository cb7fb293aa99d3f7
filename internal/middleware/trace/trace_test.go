package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/log"
)

func newTestLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, newTestLogger(&buf))

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if got := rr.Header().Get(HeaderRequestID); got != seen {
		t.Fatalf("response header %q, context %q", got, seen)
	}
	out := buf.String()
	for _, want := range []string{"inside handler", "request_id=" + seen, "status_code=418", "client_ip=10.0.0.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d", got)
	}
}

func TestMiddlewareReusesSafeIncomingID(t *testing.T) {
	m := NewMiddleware(nil, newTestLogger(&bytes.Buffer{}))
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	tests := []struct {
		incoming string
		reused   bool
	}{
		{"abc-123", true},
		{"has space", false},
		{strings.Repeat("x", 65), false},
		{"", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.incoming != "" {
			req.Header.Set(HeaderRequestID, tt.incoming)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if got := rr.Header().Get(HeaderRequestID) == tt.incoming; got != tt.reused {
			t.Errorf("incoming %q: reused = %v, want %v", tt.incoming, got, tt.reused)
		}
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}
