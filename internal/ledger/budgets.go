package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// Default thresholds, in percent of the budget amount.
var (
	DefaultWarningThreshold = decimal.NewFromInt(75)
	DefaultAlertThreshold   = decimal.NewFromInt(90)
)

// progressConcurrency bounds the spend queries in flight per request.
const progressConcurrency = 8

type CreateBudgetInput struct {
	Name             string           `json:"name"`
	CategoryID       string           `json:"categoryId"`
	Amount           decimal.Decimal  `json:"amount"`
	Period           core.Period      `json:"period"`
	StartDate        *time.Time       `json:"startDate,omitempty"`
	EndDate          *time.Time       `json:"endDate,omitempty"`
	WarningThreshold *decimal.Decimal `json:"warningThreshold,omitempty"`
	AlertThreshold   *decimal.Decimal `json:"alertThreshold,omitempty"`
	IsActive         *bool            `json:"isActive,omitempty"`
}

type BudgetPatch struct {
	Name             *string          `json:"name,omitempty"`
	CategoryID       *string          `json:"categoryId,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	Period           *core.Period     `json:"period,omitempty"`
	StartDate        *time.Time       `json:"startDate,omitempty"`
	EndDate          *time.Time       `json:"endDate,omitempty"`
	WarningThreshold *decimal.Decimal `json:"warningThreshold,omitempty"`
	AlertThreshold   *decimal.Decimal `json:"alertThreshold,omitempty"`
	IsActive         *bool            `json:"isActive,omitempty"`
}

func (l *Ledger) CreateBudget(ctx context.Context, ownerID string, in CreateBudgetInput) (*core.Budget, error) {
	now := l.now().UTC()
	b := &core.Budget{
		ID:               l.newID(),
		OwnerID:          ownerID,
		Name:             strings.TrimSpace(in.Name),
		CategoryID:       in.CategoryID,
		Amount:           in.Amount,
		Period:           in.Period,
		WarningThreshold: DefaultWarningThreshold,
		AlertThreshold:   DefaultAlertThreshold,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.Period.IsValid() {
		b.StartDate, b.EndDate = core.CurrentPeriod(in.Period, now)
	}
	if in.StartDate != nil {
		b.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		b.EndDate = in.EndDate.UTC()
	}
	if in.WarningThreshold != nil {
		b.WarningThreshold = *in.WarningThreshold
	}
	if in.AlertThreshold != nil {
		b.AlertThreshold = *in.AlertThreshold
	}
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	err := l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		if err := budgetCategoryExists(ctx, r, ownerID, b.CategoryID); err != nil {
			return err
		}
		return r.CreateBudget(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}

	l.logger.InfoContext(ctx, "Budget created", log.FieldOwnerID, ownerID, log.FieldBudgetID, b.ID)
	return b, nil
}

func budgetCategoryExists(ctx context.Context, r store.Repository, ownerID, categoryID string) error {
	_, err := r.GetCategory(ctx, ownerID, categoryID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Referencef("category %s does not exist", categoryID)
	}
	return err
}

func (l *Ledger) GetBudget(ctx context.Context, ownerID, id string) (*core.Budget, error) {
	return l.store.GetBudget(ctx, ownerID, id)
}

func (l *Ledger) ListBudgets(ctx context.Context, ownerID string) ([]core.Budget, error) {
	return l.store.ListBudgets(ctx, ownerID, store.BudgetFilter{})
}

func (l *Ledger) UpdateBudget(ctx context.Context, ownerID, id string, p BudgetPatch) (*core.Budget, error) {
	var out *core.Budget
	err := l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		b, err := r.GetBudget(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			b.Name = strings.TrimSpace(*p.Name)
		}
		if p.CategoryID != nil {
			if err := budgetCategoryExists(ctx, r, ownerID, *p.CategoryID); err != nil {
				return err
			}
			b.CategoryID = *p.CategoryID
		}
		if p.Amount != nil {
			b.Amount = *p.Amount
		}
		if p.Period != nil {
			b.Period = *p.Period
		}
		if p.StartDate != nil {
			b.StartDate = p.StartDate.UTC()
		}
		if p.EndDate != nil {
			b.EndDate = p.EndDate.UTC()
		}
		if p.WarningThreshold != nil {
			b.WarningThreshold = *p.WarningThreshold
		}
		if p.AlertThreshold != nil {
			b.AlertThreshold = *p.AlertThreshold
		}
		if p.IsActive != nil {
			b.IsActive = *p.IsActive
		}
		b.UpdatedAt = l.now().UTC()
		if err := b.Validate(); err != nil {
			return err
		}
		if err := r.UpdateBudget(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	return out, nil
}

func (l *Ledger) DeleteBudget(ctx context.Context, ownerID, id string) error {
	if err := l.store.DeleteBudget(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// ComputeBudgetProgress reports spend against every active budget for the period
// window containing now. The stored start and end dates only seed the first
// period; the window is always recomputed. Results are ordered by budget name.
func (l *Ledger) ComputeBudgetProgress(ctx context.Context, ownerID string) ([]core.BudgetProgress, error) {
	budgets, err := l.store.ListBudgets(ctx, ownerID, store.BudgetFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	now := l.now().UTC()
	out := make([]core.BudgetProgress, len(budgets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(progressConcurrency)
	for i := range budgets {
		i := i
		g.Go(func() error {
			p, err := l.progress(gctx, budgets[i], now)
			if err != nil {
				return fmt.Errorf("budget %s: %w", budgets[i].ID, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.ErrorContext(ctx, "Budget progress failed",
			log.FieldOwnerID, ownerID, log.FieldOperation, log.OpProgress, log.FieldError, err)
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Budget.Name < out[j].Budget.Name })
	return out, nil
}

func (l *Ledger) progress(ctx context.Context, b core.Budget, now time.Time) (core.BudgetProgress, error) {
	start, end := core.CurrentPeriod(b.Period, now)
	spent, err := l.store.SumTransactions(ctx, b.OwnerID, store.TransactionFilter{
		Type:       core.TypeExpense,
		CategoryID: b.CategoryID,
		From:       start,
		To:         end,
	})
	if err != nil {
		return core.BudgetProgress{}, err
	}

	pct, status, remaining := core.ClassifyBudget(b, spent)
	return core.BudgetProgress{
		Budget:             b,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
		TotalSpent:         spent,
		PercentageSpent:    pct,
		Remaining:          remaining,
		Status:             status,
		IsCurrentlyActive:  b.IsActive && core.InWindow(now, start, end),
	}, nil
}
