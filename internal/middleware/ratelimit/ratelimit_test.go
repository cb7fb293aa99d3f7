package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLimiterAllow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{Requests: 2, Window: time.Minute, Now: clock.now})
	defer rl.Stop()

	for i := 0; i < 2; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third request allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other client rejected")
	}
	if got := rl.ActiveClients(); got != 2 {
		t.Errorf("ActiveClients() = %d, want 2", got)
	}

	clock.t = clock.t.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("request rejected after the window reset")
	}
}

func TestLimiterDefaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	if rl.cfg.Requests != 60 || rl.cfg.Window != time.Minute {
		t.Errorf("config = %+v, want 60 per minute", rl.cfg)
	}
	rl.Stop()
}

func TestSweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{Requests: 5, Window: time.Minute, Now: clock.now})
	defer rl.Stop()

	rl.Allow("old")
	clock.t = clock.t.Add(45 * time.Second)
	rl.Allow("new")
	clock.t = clock.t.Add(20 * time.Second)

	if removed := rl.sweep(); removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}
	if got := rl.ActiveClients(); got != 1 {
		t.Errorf("ActiveClients() = %d, want 1", got)
	}
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{Requests: 1, Window: time.Minute, Now: clock.now})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusCreated) }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("first request status = %d", rr.Code)
	}

	clock.t = clock.t.Add(15500 * time.Millisecond)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "45" {
		t.Errorf("Retry-After = %q, want 45", got)
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 1 {
		t.Errorf("metrics = %+v", m)
	}
}
