// Package ratelimit bounds how many requests one client may make per window.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds rate limiter configuration. Zero values take the defaults.
type Config struct {
	Requests        int
	Window          time.Duration
	CleanupInterval time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// DefaultConfig allows 60 requests per client per minute.
func DefaultConfig() Config {
	return Config{
		Requests:        60,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter counts requests per key in fixed windows.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	cfg     Config

	stop     chan struct{}
	stopOnce sync.Once

	rejected atomic.Int64
}

type window struct {
	start time.Time
	count int
}

// NewLimiter starts a limiter and its cleanup loop. Call Stop to end the loop.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.Requests <= 0 {
		cfg.Requests = def.Requests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Limiter{
		windows: make(map[string]*window),
		cfg:     cfg,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow records a request for key and reports whether it fits the window.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

// take also returns how long until the key's window resets.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.cfg.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		l.windows[key] = &window{start: now, count: 1}
		return true, l.cfg.Window
	}
	w.count++
	return w.count <= l.cfg.Requests, w.start.Add(l.cfg.Window).Sub(now)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep forgets keys whose window has ended.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.cfg.Now()
	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.cfg.Window {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of keys with an open window.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the cleanup loop. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Metrics is a snapshot of the limiter counters.
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   l.rejected.Load(),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
// key picks the bucket for a request; onLimit, when set, writes the body.
func (l *Limiter) Middleware(key func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, reset := l.take(key(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			l.rejected.Add(1)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(reset.Seconds()))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
