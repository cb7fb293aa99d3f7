// Package cache provides in-process caches for derived ledger data such as
// generated insights.
package cache

import (
	"context"
	"log/slog"
	"time"

	"fintrack/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically drops expired entries from the registered caches.
type Janitor struct {
	caches []Cleaner
	logger *slog.Logger
}

func NewJanitor(logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{logger: logger.With(log.FieldComponent, log.ComponentInsights)}
}

// Register adds a cache to the cleanup rounds. It must be called before Run.
func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Run cleans every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.CleanOnce(); n > 0 {
				j.logger.DebugContext(ctx, "Expired cache entries removed", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// CleanOnce runs a single cleanup round and returns how many entries it removed.
func (j *Janitor) CleanOnce() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}
