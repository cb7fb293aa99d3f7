package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func newBufferLogger(buf *bytes.Buffer, format string) *Logger {
	return New(Config{
		Level:     slog.LevelDebug,
		Component: ComponentHTTP,
		Handler:   NewHandler(buf, format, slog.LevelDebug),
	})
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{503, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newBufferLogger(&buf, "text"))
		r := httptest.NewRequest("GET", "/api/accounts?x=1", nil)
		sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.1")

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("status %d: expected %s in %q", tt.status, tt.level, out)
		}
		if !strings.Contains(out, "duration_ms=12") || !strings.Contains(out, "client_ip=10.0.0.1") {
			t.Errorf("status %d: missing response fields in %q", tt.status, out)
		}
	}
}

func TestLogErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, "json"))
	sl.LogError(context.Background(), "Request failed", errors.New("boom"), ComponentHTTP, "POST /api/transactions", NewFields())

	out := buf.String()
	for _, want := range []string{`"msg":"Request failed"`, `"error":"boom"`, `"operation":"POST /api/transactions"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, "text").With(FieldRequestID, "req_1")
	ctx := WithLogger(context.Background(), l)

	FromContext(ctx).InfoContext(ctx, "hello")
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("context logger lost attributes: %q", buf.String())
	}

	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should fall back to the default logger")
	}
}

func TestComponentAppearsOnce(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf, "text")
	reqLogger := base.WithComponent(ComponentHTTP).With(FieldRequestID, "req_1")
	sl := NewStructuredLogger(reqLogger)
	r := httptest.NewRequest("GET", "/api/accounts", nil)

	sl.LogHTTPStart(context.Background(), r, "10.0.0.1")
	sl.LogHTTPEnd(context.Background(), r, 200, 3, "10.0.0.1")
	reqLogger.Info("handled")
	sl.LogError(context.Background(), "Request failed", errors.New("boom"), ComponentLedger, "op", NewFields())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 records, got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines[:3] {
		if n := strings.Count(line, "component="); n != 1 {
			t.Errorf("component appears %d times in %q", n, line)
		}
		if !strings.Contains(line, "component=http") {
			t.Errorf("missing component=http in %q", line)
		}
	}
	if strings.Count(lines[3], "component=") != 1 || !strings.Contains(lines[3], "component=ledger") {
		t.Errorf("error record should carry only the given component: %q", lines[3])
	}
}
