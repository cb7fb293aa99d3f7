// Package storetest holds behaviour checks shared by every store.Store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Factory returns an empty store; it is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run exercises s against the store.Store contract.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"AccountsAreOwnerScoped", testAccountsOwnerScoped},
		{"AccountNameConflict", testAccountNameConflict},
		{"BalanceUpdates", testBalanceUpdates},
		{"BalanceStaysInRange", testBalanceRange},
		{"CategoryDeleteDetaches", testCategoryDeleteDetaches},
		{"TransactionOrderingAndFilters", testTransactionFilters},
		{"Budgets", testBudgets},
		{"InsightPrune", testInsightPrune},
		{"RecurringWindow", testRecurringWindow},
		{"InTxRollsBack", testInTxRollback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) time.Time { return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC) }

func newAccount(owner, name string, typ core.AccountType, balance string) *core.Account {
	now := time.Now().UTC()
	a := &core.Account{ID: uuid.NewString(), OwnerID: owner, Name: name, Type: typ, CreatedAt: now, UpdatedAt: now}
	if balance != "" {
		a.Balance = core.Ptr(dec(balance))
	}
	return a
}

func newTx(owner, account string, amount string, date time.Time) *core.Transaction {
	now := time.Now().UTC()
	typ := core.TypeExpense
	if dec(amount).IsPositive() {
		typ = core.TypeIncome
	}
	return &core.Transaction{
		ID: uuid.NewString(), OwnerID: owner, Type: typ, Amount: dec(amount), Date: date,
		AccountID: core.Ptr(account), CreatedAt: now, UpdatedAt: now,
	}
}

func testAccountsOwnerScoped(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount("alice", "Main", core.AccountChecking, "10.00")
	require.NoError(t, s.CreateAccount(ctx, a))

	_, err := s.GetAccount(ctx, "bob", a.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	err = s.IncrementBalance(ctx, "bob", a.ID, dec("1"))
	assert.True(t, errors.Is(err, core.ErrNotFound))

	list, err := s.ListAccounts(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := s.GetAccount(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", got.Name)
	assert.True(t, got.Balance.Equal(dec("10")))
}

func testAccountNameConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, newAccount("alice", "Main", core.AccountChecking, "0")))

	err := s.CreateAccount(ctx, newAccount("alice", "main", core.AccountSavings, "0"))
	assert.True(t, errors.Is(err, core.ErrConflict), "got %v", err)

	// Same name under another owner is fine
	require.NoError(t, s.CreateAccount(ctx, newAccount("bob", "Main", core.AccountChecking, "0")))
}

func testBalanceUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount("alice", "Main", core.AccountChecking, "100.00")
	cash := newAccount("alice", "Wallet", core.AccountCash, "")
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NoError(t, s.CreateAccount(ctx, cash))

	require.NoError(t, s.IncrementBalance(ctx, "alice", a.ID, dec("-20.55")))
	require.NoError(t, s.IncrementBalance(ctx, "alice", a.ID, dec("0.05")))
	got, err := s.GetAccount(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("79.50")), "balance %s", got.Balance)

	require.NoError(t, s.SetBalance(ctx, "alice", a.ID, dec("12.34")))
	got, err = s.GetAccount(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("12.34")))

	err = s.IncrementBalance(ctx, "alice", cash.ID, dec("1"))
	assert.True(t, errors.Is(err, core.ErrInvalidState), "got %v", err)

	err = s.IncrementBalance(ctx, "alice", uuid.NewString(), dec("1"))
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
}

func testBalanceRange(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount("alice", "Main", core.AccountChecking, "0")
	require.NoError(t, s.CreateAccount(ctx, a))

	require.NoError(t, s.SetBalance(ctx, "alice", a.ID, core.MaxBalance.Sub(dec("1"))))
	require.NoError(t, s.IncrementBalance(ctx, "alice", a.ID, dec("1")))

	err := s.IncrementBalance(ctx, "alice", a.ID, dec("0.01"))
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)
	err = s.IncrementBalance(ctx, "alice", a.ID, dec("1e17"))
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)
	err = s.SetBalance(ctx, "alice", a.ID, core.MaxBalance.Neg().Sub(dec("0.01")))
	assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)

	got, err := s.GetAccount(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(core.MaxBalance), "balance %s", got.Balance)

	require.NoError(t, s.IncrementBalance(ctx, "alice", a.ID, core.MaxBalance.Neg()))
}

func testCategoryDeleteDetaches(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount("alice", "Main", core.AccountChecking, "0")
	require.NoError(t, s.CreateAccount(ctx, a))
	c := &core.Category{ID: uuid.NewString(), OwnerID: "alice", Name: "Food", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateCategory(ctx, c))

	err := s.CreateCategory(ctx, &core.Category{ID: uuid.NewString(), OwnerID: "alice", Name: "FOOD", CreatedAt: time.Now().UTC()})
	assert.True(t, errors.Is(err, core.ErrConflict))

	byName, err := s.GetCategoryByName(ctx, "alice", "food")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)

	for i := 0; i < 3; i++ {
		tx := newTx("alice", a.ID, "-5", day(i+1))
		tx.CategoryID = core.Ptr(c.ID)
		require.NoError(t, s.InsertTransaction(ctx, tx))
	}
	require.NoError(t, s.InsertTransaction(ctx, newTx("alice", a.ID, "-1", day(5))))

	detached, err := s.DeleteCategory(ctx, "alice", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, detached)

	n, err := s.CountTransactions(ctx, "alice", store.TransactionFilter{CategoryID: c.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.CountTransactions(ctx, "alice", store.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = s.GetCategory(ctx, "alice", c.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func testTransactionFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount("alice", "Main", core.AccountChecking, "0")
	b := newAccount("alice", "Savings", core.AccountSavings, "0")
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NoError(t, s.CreateAccount(ctx, b))

	late := newTx("alice", a.ID, "-3", day(10))
	early := newTx("alice", a.ID, "7", day(2))
	mid := newTx("alice", b.ID, "-4", day(5))
	for _, tx := range []*core.Transaction{late, early, mid} {
		require.NoError(t, s.InsertTransaction(ctx, tx))
	}
	require.NoError(t, s.InsertTransaction(ctx, newTx("bob", "other", "-100", day(5))))

	all, err := s.ListTransactions(ctx, "alice", store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{early.ID, mid.ID, late.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	onA, err := s.ListTransactions(ctx, "alice", store.TransactionFilter{AccountID: a.ID})
	require.NoError(t, err)
	assert.Len(t, onA, 2)

	window, err := s.ListTransactions(ctx, "alice", store.TransactionFilter{From: day(2), To: day(5)})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	sum, err := s.SumTransactions(ctx, "alice", store.TransactionFilter{Type: core.TypeExpense})
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("-7")), "sum %s", sum)

	late.Amount = dec("-3.25")
	late.Description = "edited"
	require.NoError(t, s.UpdateTransaction(ctx, late))
	got, err := s.GetTransaction(ctx, "alice", late.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("-3.25")))
	assert.Equal(t, "edited", got.Description)
	assert.True(t, got.Date.Equal(day(10)))

	require.NoError(t, s.DeleteTransaction(ctx, "alice", late.ID))
	err = s.DeleteTransaction(ctx, "alice", late.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func testBudgets(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	mk := func(name string, active bool, category string) *core.Budget {
		return &core.Budget{
			ID: uuid.NewString(), OwnerID: "alice", Name: name, CategoryID: category, Amount: dec("100"),
			Period: core.Monthly, StartDate: day(1), EndDate: day(31),
			WarningThreshold: dec("75"), AlertThreshold: dec("90"), IsActive: active,
			CreatedAt: now, UpdatedAt: now,
		}
	}
	groceries := mk("Groceries", true, "c1")
	require.NoError(t, s.CreateBudget(ctx, groceries))
	require.NoError(t, s.CreateBudget(ctx, mk("Fun", false, "c2")))

	err := s.CreateBudget(ctx, mk("groceries", true, "c3"))
	assert.True(t, errors.Is(err, core.ErrConflict), "got %v", err)

	active, err := s.ListBudgets(ctx, "alice", store.BudgetFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Groceries", active[0].Name)
	assert.True(t, active[0].WarningThreshold.Equal(dec("75")))

	byCat, err := s.ListBudgets(ctx, "alice", store.BudgetFilter{CategoryID: "c2"})
	require.NoError(t, err)
	assert.Len(t, byCat, 1)

	groceries.Amount = dec("250.50")
	require.NoError(t, s.UpdateBudget(ctx, groceries))
	got, err := s.GetBudget(ctx, "alice", groceries.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("250.50")))

	require.NoError(t, s.DeleteBudget(ctx, "alice", groceries.ID))
	_, err = s.GetBudget(ctx, "alice", groceries.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func testInsightPrune(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 7; i++ {
		require.NoError(t, s.SaveInsight(ctx, &core.Insight{
			ID: uuid.NewString(), OwnerID: "alice", Hash: string(rune('a' + i)), Content: "tip",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	removed, err := s.PruneInsights(ctx, "alice", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = s.GetInsightByHash(ctx, "alice", "a")
	assert.True(t, errors.Is(err, core.ErrNotFound))
	got, err := s.GetInsightByHash(ctx, "alice", "g")
	require.NoError(t, err)
	assert.Equal(t, "tip", got.Content)
}

func testRecurringWindow(t *testing.T, s store.Store) {
	ctx := context.Background()
	mk := func(start time.Time, end *time.Time) *core.RecurringTransaction {
		return &core.RecurringTransaction{
			ID: uuid.NewString(), OwnerID: "alice", Type: core.TypeExpense, Amount: dec("9.99"),
			AccountID: "acc", Description: "Streaming", Every: core.RepeatMonthly, StartDate: start, EndDate: end,
		}
	}
	current := mk(day(1), nil)
	future := mk(day(20), nil)
	ended := mk(day(1), core.Ptr(day(3)))
	for _, rt := range []*core.RecurringTransaction{current, future, ended} {
		require.NoError(t, s.CreateRecurring(ctx, rt))
	}

	active, err := s.ListActiveRecurring(ctx, day(10))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, current.ID, active[0].ID)

	require.NoError(t, s.MarkRecurringExecuted(ctx, "alice", current.ID, day(10)))
	got, err := s.GetRecurring(ctx, "alice", current.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastExecution)
	assert.True(t, got.LastExecution.Equal(day(10)))
}

func testInTxRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount("alice", "Main", core.AccountChecking, "50")
	require.NoError(t, s.CreateAccount(ctx, a))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		if err := r.IncrementBalance(ctx, "alice", a.ID, dec("25")); err != nil {
			return err
		}
		if err := r.InsertTransaction(ctx, newTx("alice", a.ID, "25", day(1))); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("50")), "balance %s", got.Balance)
	n, err := s.CountTransactions(ctx, "alice", store.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)

	err = s.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		return r.IncrementBalance(ctx, "alice", a.ID, dec("25"))
	})
	require.NoError(t, err)
	got, err = s.GetAccount(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("75")))
}
