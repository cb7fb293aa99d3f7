// Package store defines the persistence port of the ledger.
//
// Every operation takes the owner id as an explicit argument; implementations
// must never return or mutate another owner's records. Errors are classified with
// the core error kinds (core.ErrNotFound, core.ErrConflict).
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Ports for persistence adapters.
type (
	// Store is a Repository that can also run a group of operations atomically.
	Store interface {
		Repository

		// InTx runs fn against a transactional view of the store. The changes made
		// through r are committed when fn returns nil and discarded otherwise.
		// fn must only use r; calling back into the Store from fn is not allowed.
		InTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

		Close() error
	}

	Repository interface {
		AccountRepository
		CategoryRepository
		TransactionRepository
		BudgetRepository
		InsightRepository
		RecurringRepository
	}

	AccountRepository interface {
		CreateAccount(ctx context.Context, a *core.Account) error
		GetAccount(ctx context.Context, ownerID, id string) (*core.Account, error)
		// ListAccounts returns the owner's accounts ordered by name.
		ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
		// UpdateAccount rewrites name and credit card fields; the balance is left alone.
		UpdateAccount(ctx context.Context, a *core.Account) error
		DeleteAccount(ctx context.Context, ownerID, id string) error
		// IncrementBalance atomically adds delta to a balance-tracked account.
		IncrementBalance(ctx context.Context, ownerID, id string, delta decimal.Decimal) error
		SetBalance(ctx context.Context, ownerID, id string, balance decimal.Decimal) error
	}

	CategoryRepository interface {
		CreateCategory(ctx context.Context, c *core.Category) error
		GetCategory(ctx context.Context, ownerID, id string) (*core.Category, error)
		GetCategoryByName(ctx context.Context, ownerID, name string) (*core.Category, error)
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		// DeleteCategory removes the category and clears it from every transaction
		// that references it. It returns the number of detached transactions.
		DeleteCategory(ctx context.Context, ownerID, id string) (int, error)
	}

	TransactionRepository interface {
		InsertTransaction(ctx context.Context, t *core.Transaction) error
		GetTransaction(ctx context.Context, ownerID, id string) (*core.Transaction, error)
		UpdateTransaction(ctx context.Context, t *core.Transaction) error
		DeleteTransaction(ctx context.Context, ownerID, id string) error
		// ListTransactions returns matching rows ordered by (date, created_at, id).
		ListTransactions(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error)
		SumTransactions(ctx context.Context, ownerID string, f TransactionFilter) (decimal.Decimal, error)
		CountTransactions(ctx context.Context, ownerID string, f TransactionFilter) (int, error)
	}

	BudgetRepository interface {
		CreateBudget(ctx context.Context, b *core.Budget) error
		GetBudget(ctx context.Context, ownerID, id string) (*core.Budget, error)
		// ListBudgets returns the owner's budgets ordered by name.
		ListBudgets(ctx context.Context, ownerID string, f BudgetFilter) ([]core.Budget, error)
		UpdateBudget(ctx context.Context, b *core.Budget) error
		DeleteBudget(ctx context.Context, ownerID, id string) error
	}

	InsightRepository interface {
		GetInsightByHash(ctx context.Context, ownerID, hash string) (*core.Insight, error)
		SaveInsight(ctx context.Context, in *core.Insight) error
		// PruneInsights keeps the newest keep records of the owner and returns how
		// many were removed.
		PruneInsights(ctx context.Context, ownerID string, keep int) (int, error)
	}

	RecurringRepository interface {
		CreateRecurring(ctx context.Context, r *core.RecurringTransaction) error
		GetRecurring(ctx context.Context, ownerID, id string) (*core.RecurringTransaction, error)
		ListRecurring(ctx context.Context, ownerID string) ([]core.RecurringTransaction, error)
		DeleteRecurring(ctx context.Context, ownerID, id string) error
		MarkRecurringExecuted(ctx context.Context, ownerID, id string, at time.Time) error
		// ListActiveRecurring is the only cross-owner read: it feeds the recurring
		// worker with every template whose window contains now.
		ListActiveRecurring(ctx context.Context, now time.Time) ([]core.RecurringTransaction, error)
	}
)

// TransactionFilter narrows transaction queries. Zero values do not filter.
type TransactionFilter struct {
	Type       core.TransactionType
	CategoryID string
	// AccountID matches rows whose account, source or destination is the account.
	AccountID       string
	TransferGroupID string
	// From and To bound the transaction date, both inclusive.
	From time.Time
	To   time.Time
}

// Matches reports whether t passes the filter. Adapters without a query language
// use it directly; the others keep their queries equivalent to it.
func (f TransactionFilter) Matches(t *core.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.CategoryID != "" && core.Deref(t.CategoryID) != f.CategoryID {
		return false
	}
	if f.AccountID != "" && core.Deref(t.AccountID) != f.AccountID &&
		core.Deref(t.FromAccountID) != f.AccountID && core.Deref(t.ToAccountID) != f.AccountID {
		return false
	}
	if f.TransferGroupID != "" && core.Deref(t.TransferGroupID) != f.TransferGroupID {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return true
}

// BudgetFilter narrows budget queries.
type BudgetFilter struct {
	ActiveOnly bool
	CategoryID string
}

func (f BudgetFilter) Matches(b *core.Budget) bool {
	if f.ActiveOnly && !b.IsActive {
		return false
	}
	if f.CategoryID != "" && b.CategoryID != f.CategoryID {
		return false
	}
	return true
}

// LessTransaction orders transactions for replay: date, then creation order.
func LessTransaction(a, b *core.Transaction) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
