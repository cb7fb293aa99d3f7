// Package insights produces spending recommendations from an owner's
// transactions. Results are keyed by a hash of the transaction set and cached in
// process and in the store, so unchanged data never reaches the provider twice.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// KeepPerOwner is how many stored insights survive each prune.
const KeepPerOwner = 5

type Service struct {
	store    store.Repository
	provider Provider
	cache    cache.Cache[*core.Insight]
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(r store.Repository, p Provider, c cache.Cache[*core.Insight], opts ...Option) *Service {
	s := &Service{store: r, provider: p, cache: c, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(log.FieldComponent, log.ComponentInsights)
	return s
}

// Insight returns the recommendation for the owner's current transactions.
func (s *Service) Insight(ctx context.Context, ownerID string) (*core.Insight, error) {
	rows, err := s.store.ListTransactions(ctx, ownerID, store.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	hash := Hash(rows)
	key := ownerID + ":" + hash

	if in, ok := s.cache.Get(key); ok {
		return in, nil
	}

	in, err := s.store.GetInsightByHash(ctx, ownerID, hash)
	if err == nil {
		s.cache.Set(key, in)
		return in, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("load insight: %w", err)
	}

	cats, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	start := time.Now()
	content, err := s.provider.Generate(ctx, Summarize(rows, names))
	if err != nil {
		s.logger.ErrorContext(ctx, "Insight generation failed", log.FieldOwnerID, ownerID, log.FieldError, err)
		return nil, fmt.Errorf("generate insight: %w", err)
	}

	in = &core.Insight{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Hash:      hash,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveInsight(ctx, in); err != nil {
		return nil, fmt.Errorf("save insight: %w", err)
	}
	pruned, err := s.store.PruneInsights(ctx, ownerID, KeepPerOwner)
	if err != nil {
		// The new insight is saved; the next call prunes again
		s.logger.WarnContext(ctx, "Failed to prune insights", log.FieldOwnerID, ownerID, log.FieldError, err)
	}
	s.cache.Set(key, in)

	s.logger.InfoContext(ctx, "Insight generated",
		log.FieldOwnerID, ownerID, "transactions", len(rows), "pruned", pruned,
		log.FieldDuration, time.Since(start).Milliseconds())
	return in, nil
}
