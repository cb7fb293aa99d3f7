package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// ensureReservedCategory looks up name for the owner and creates it when absent.
// A concurrent creator winning the unique index is resolved by reading again.
func ensureReservedCategory(ctx context.Context, r store.Repository, ownerID, name string, now time.Time, newID func() string) (*core.Category, error) {
	cat, err := r.GetCategoryByName(ctx, ownerID, name)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	cat = &core.Category{ID: newID(), OwnerID: ownerID, Name: name, CreatedAt: now}
	err = r.CreateCategory(ctx, cat)
	if errors.Is(err, core.ErrConflict) {
		return r.GetCategoryByName(ctx, ownerID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s category: %w", name, err)
	}
	return cat, nil
}

// EnsureReservedCategory returns the owner's category called name, creating it
// on first use. Repeated calls return the same id.
func (l *Ledger) EnsureReservedCategory(ctx context.Context, ownerID, name string) (*core.Category, error) {
	return ensureReservedCategory(ctx, l.store, ownerID, name, l.now().UTC(), l.newID)
}

func (l *Ledger) CreateCategory(ctx context.Context, ownerID, name string) (*core.Category, error) {
	cat := &core.Category{ID: l.newID(), OwnerID: ownerID, Name: strings.TrimSpace(name), CreatedAt: l.now().UTC()}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if err := l.store.CreateCategory(ctx, cat); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return cat, nil
}

func (l *Ledger) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	return l.store.ListCategories(ctx, ownerID)
}

// DeleteCategory removes a category and detaches it from every transaction. It
// is refused while a budget points at the category.
func (l *Ledger) DeleteCategory(ctx context.Context, ownerID, id string) (int, error) {
	var detached int
	err := l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		budgets, err := r.ListBudgets(ctx, ownerID, store.BudgetFilter{CategoryID: id})
		if err != nil {
			return err
		}
		if len(budgets) > 0 {
			return core.Conflictf("category %s is used by budget %q", id, budgets[0].Name)
		}
		detached, err = r.DeleteCategory(ctx, ownerID, id)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete category: %w", err)
	}

	l.logger.InfoContext(ctx, "Category deleted",
		log.FieldOwnerID, ownerID, "category_id", id, "detached_transactions", detached)
	return detached, nil
}
