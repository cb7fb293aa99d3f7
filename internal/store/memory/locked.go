package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Single-operation entry points. Each one locks the store for its duration.

func (s *Store) CreateAccount(ctx context.Context, a *core.Account) error {
	return s.do(func(r *repo) error { return r.CreateAccount(ctx, a) })
}

func (s *Store) GetAccount(ctx context.Context, ownerID, id string) (*core.Account, error) {
	var out *core.Account
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.GetAccount(ctx, ownerID, id)
		return err
	})
	return out, err
}

func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	var out []core.Account
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.ListAccounts(ctx, ownerID)
		return err
	})
	return out, err
}

func (s *Store) UpdateAccount(ctx context.Context, a *core.Account) error {
	return s.do(func(r *repo) error { return r.UpdateAccount(ctx, a) })
}

func (s *Store) DeleteAccount(ctx context.Context, ownerID, id string) error {
	return s.do(func(r *repo) error { return r.DeleteAccount(ctx, ownerID, id) })
}

func (s *Store) IncrementBalance(ctx context.Context, ownerID, id string, delta decimal.Decimal) error {
	return s.do(func(r *repo) error { return r.IncrementBalance(ctx, ownerID, id, delta) })
}

func (s *Store) SetBalance(ctx context.Context, ownerID, id string, balance decimal.Decimal) error {
	return s.do(func(r *repo) error { return r.SetBalance(ctx, ownerID, id, balance) })
}

func (s *Store) CreateCategory(ctx context.Context, c *core.Category) error {
	return s.do(func(r *repo) error { return r.CreateCategory(ctx, c) })
}

func (s *Store) GetCategory(ctx context.Context, ownerID, id string) (*core.Category, error) {
	var out *core.Category
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.GetCategory(ctx, ownerID, id)
		return err
	})
	return out, err
}

func (s *Store) GetCategoryByName(ctx context.Context, ownerID, name string) (*core.Category, error) {
	var out *core.Category
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.GetCategoryByName(ctx, ownerID, name)
		return err
	})
	return out, err
}

func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	var out []core.Category
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.ListCategories(ctx, ownerID)
		return err
	})
	return out, err
}

func (s *Store) DeleteCategory(ctx context.Context, ownerID, id string) (int, error) {
	var out int
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.DeleteCategory(ctx, ownerID, id)
		return err
	})
	return out, err
}

func (s *Store) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	return s.do(func(r *repo) error { return r.InsertTransaction(ctx, t) })
}

func (s *Store) GetTransaction(ctx context.Context, ownerID, id string) (*core.Transaction, error) {
	var out *core.Transaction
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.GetTransaction(ctx, ownerID, id)
		return err
	})
	return out, err
}

func (s *Store) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	return s.do(func(r *repo) error { return r.UpdateTransaction(ctx, t) })
}

func (s *Store) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	return s.do(func(r *repo) error { return r.DeleteTransaction(ctx, ownerID, id) })
}

func (s *Store) ListTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) ([]core.Transaction, error) {
	var out []core.Transaction
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.ListTransactions(ctx, ownerID, f)
		return err
	})
	return out, err
}

func (s *Store) SumTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.SumTransactions(ctx, ownerID, f)
		return err
	})
	return out, err
}

func (s *Store) CountTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) (int, error) {
	var out int
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.CountTransactions(ctx, ownerID, f)
		return err
	})
	return out, err
}

func (s *Store) CreateBudget(ctx context.Context, b *core.Budget) error {
	return s.do(func(r *repo) error { return r.CreateBudget(ctx, b) })
}

func (s *Store) GetBudget(ctx context.Context, ownerID, id string) (*core.Budget, error) {
	var out *core.Budget
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.GetBudget(ctx, ownerID, id)
		return err
	})
	return out, err
}

func (s *Store) ListBudgets(ctx context.Context, ownerID string, f store.BudgetFilter) ([]core.Budget, error) {
	var out []core.Budget
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.ListBudgets(ctx, ownerID, f)
		return err
	})
	return out, err
}

func (s *Store) UpdateBudget(ctx context.Context, b *core.Budget) error {
	return s.do(func(r *repo) error { return r.UpdateBudget(ctx, b) })
}

func (s *Store) DeleteBudget(ctx context.Context, ownerID, id string) error {
	return s.do(func(r *repo) error { return r.DeleteBudget(ctx, ownerID, id) })
}

func (s *Store) GetInsightByHash(ctx context.Context, ownerID, hash string) (*core.Insight, error) {
	var out *core.Insight
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.GetInsightByHash(ctx, ownerID, hash)
		return err
	})
	return out, err
}

func (s *Store) SaveInsight(ctx context.Context, in *core.Insight) error {
	return s.do(func(r *repo) error { return r.SaveInsight(ctx, in) })
}

func (s *Store) PruneInsights(ctx context.Context, ownerID string, keep int) (int, error) {
	var out int
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.PruneInsights(ctx, ownerID, keep)
		return err
	})
	return out, err
}

func (s *Store) CreateRecurring(ctx context.Context, rt *core.RecurringTransaction) error {
	return s.do(func(r *repo) error { return r.CreateRecurring(ctx, rt) })
}

func (s *Store) GetRecurring(ctx context.Context, ownerID, id string) (*core.RecurringTransaction, error) {
	var out *core.RecurringTransaction
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.GetRecurring(ctx, ownerID, id)
		return err
	})
	return out, err
}

func (s *Store) ListRecurring(ctx context.Context, ownerID string) ([]core.RecurringTransaction, error) {
	var out []core.RecurringTransaction
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.ListRecurring(ctx, ownerID)
		return err
	})
	return out, err
}

func (s *Store) DeleteRecurring(ctx context.Context, ownerID, id string) error {
	return s.do(func(r *repo) error { return r.DeleteRecurring(ctx, ownerID, id) })
}

func (s *Store) MarkRecurringExecuted(ctx context.Context, ownerID, id string, at time.Time) error {
	return s.do(func(r *repo) error { return r.MarkRecurringExecuted(ctx, ownerID, id, at) })
}

func (s *Store) ListActiveRecurring(ctx context.Context, now time.Time) ([]core.RecurringTransaction, error) {
	var out []core.RecurringTransaction
	err := s.do(func(r *repo) error {
		var err error
		out, err = r.ListActiveRecurring(ctx, now)
		return err
	})
	return out, err
}
