package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/store/sqlite"
)

const owner = "owner-1"

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// backends returns the store implementations the ledger scenarios run against.
func backends(t *testing.T) map[string]func(t *testing.T) store.Store {
	t.Helper()
	return map[string]func(t *testing.T) store.Store{
		"memory": func(t *testing.T) store.Store { return memory.New() },
		"sqlite": func(t *testing.T) store.Store {
			s, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []core.LedgerEvent
}

func (r *recorder) PublishLedgerEvent(_ context.Context, e core.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	s      store.Store
	l      *ledger.Ledger
	events *recorder
}

func newFixture(t *testing.T, s store.Store) *fixture {
	rec := &recorder{}
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		s:      s,
		l:      ledger.New(s, ledger.WithClock(func() time.Time { return testNow }), ledger.WithEvents(rec)),
		events: rec,
	}
}

func (f *fixture) account(name string, typ core.AccountType) *core.Account {
	f.t.Helper()
	a, err := f.l.CreateAccount(f.ctx, owner, ledger.CreateAccountInput{Name: name, Type: typ})
	require.NoError(f.t, err)
	return a
}

func (f *fixture) balance(id string) decimal.Decimal {
	f.t.Helper()
	a, err := f.l.GetAccount(f.ctx, owner, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, a.Balance)
	return *a.Balance
}

func (f *fixture) assertBalance(id, want string) {
	f.t.Helper()
	got := f.balance(id)
	assert.True(f.t, got.Equal(dec(want)), "balance of %s: got %s want %s", id, got, want)
}

func (f *fixture) create(in ledger.CreateTransactionInput) *core.Transaction {
	f.t.Helper()
	if in.Date.IsZero() {
		in.Date = testNow
	}
	tx, err := f.l.CreateTransaction(f.ctx, owner, in)
	require.NoError(f.t, err)
	return tx
}

func (f *fixture) expense(accountID, amount string) *core.Transaction {
	return f.create(ledger.CreateTransactionInput{Type: core.TypeExpense, Amount: dec(amount), AccountID: core.Ptr(accountID)})
}

func (f *fixture) transfer(from, to, amount string) *core.Transaction {
	return f.create(ledger.CreateTransactionInput{
		Type: core.TypeTransfer, Amount: dec(amount), FromAccountID: core.Ptr(from), ToAccountID: core.Ptr(to),
	})
}

func (f *fixture) count() int {
	f.t.Helper()
	n, err := f.s.CountTransactions(f.ctx, owner, store.TransactionFilter{})
	require.NoError(f.t, err)
	return n
}

func TestCreateTransferDeleteScenario(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			checking := f.account("Checking", core.AccountChecking)
			savings := f.account("Savings", core.AccountSavings)

			exp := f.expense(checking.ID, "50")
			assert.True(t, exp.Amount.Equal(dec("-50")))
			f.assertBalance(checking.ID, "-50")

			f.transfer(checking.ID, savings.ID, "20")
			f.assertBalance(checking.ID, "-70")
			f.assertBalance(savings.ID, "20")

			require.NoError(t, f.l.DeleteTransaction(f.ctx, owner, exp.ID))
			f.assertBalance(checking.ID, "-20")
			f.assertBalance(savings.ID, "20")

			res, err := f.l.RecalculateBalances(f.ctx, owner)
			require.NoError(t, err)
			assert.Equal(t, 2, res.AccountsUpdated)
			assert.Equal(t, 2, res.TransactionsProcessed)
			f.assertBalance(checking.ID, "-20")
			f.assertBalance(savings.ID, "20")
		})
	}
}

func TestCreateTransactionRejectsInvalidFieldCombinations(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)
	savings := f.account("Savings", core.AccountSavings)

	tests := []struct {
		name string
		in   ledger.CreateTransactionInput
	}{
		{"income with fromAccount", ledger.CreateTransactionInput{
			Type: core.TypeIncome, Amount: dec("10"), AccountID: core.Ptr(checking.ID), FromAccountID: core.Ptr(savings.ID)}},
		{"expense with toAccount", ledger.CreateTransactionInput{
			Type: core.TypeExpense, Amount: dec("10"), AccountID: core.Ptr(checking.ID), ToAccountID: core.Ptr(savings.ID)}},
		{"expense without account", ledger.CreateTransactionInput{
			Type: core.TypeExpense, Amount: dec("10")}},
		{"transfer to itself", ledger.CreateTransactionInput{
			Type: core.TypeTransfer, Amount: dec("10"), FromAccountID: core.Ptr(checking.ID), ToAccountID: core.Ptr(checking.ID)}},
		{"transfer with account", ledger.CreateTransactionInput{
			Type: core.TypeTransfer, Amount: dec("10"), AccountID: core.Ptr(checking.ID),
			FromAccountID: core.Ptr(checking.ID), ToAccountID: core.Ptr(savings.ID)}},
		{"zero amount", ledger.CreateTransactionInput{
			Type: core.TypeExpense, Amount: decimal.Zero, AccountID: core.Ptr(checking.ID)}},
		{"three decimals", ledger.CreateTransactionInput{
			Type: core.TypeExpense, Amount: dec("1.005"), AccountID: core.Ptr(checking.ID)}},
		{"unknown type", ledger.CreateTransactionInput{
			Type: "refund", Amount: dec("1"), AccountID: core.Ptr(checking.ID)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			in.Date = testNow
			_, err := f.l.CreateTransaction(f.ctx, owner, in)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}

	assert.Zero(t, f.count())
	f.assertBalance(checking.ID, "0")
	f.assertBalance(savings.ID, "0")
}

func TestAmountsBeyondRangeAreRejected(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, newStore(t))
			checking := f.account("Checking", core.AccountChecking)

			_, err := f.l.CreateTransaction(f.ctx, owner, ledger.CreateTransactionInput{
				Type: core.TypeIncome, Amount: dec("100000000000000000"), Date: testNow, AccountID: core.Ptr(checking.ID),
			})
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.Zero(t, f.count())
			f.assertBalance(checking.ID, "0")

			largest := f.create(ledger.CreateTransactionInput{
				Type: core.TypeIncome, Amount: core.MaxAmount, AccountID: core.Ptr(checking.ID),
			})
			assert.True(t, largest.Amount.Equal(core.MaxAmount))
			f.assertBalance(checking.ID, core.MaxAmount.String())

			_, err = f.l.CreateAccount(f.ctx, owner, ledger.CreateAccountInput{
				Name: "Huge", Type: core.AccountSavings, OpeningBalance: core.Ptr(dec("1e14")),
			})
			assert.ErrorIs(t, err, core.ErrValidation)

			_, err = f.l.CreateAccount(f.ctx, owner, ledger.CreateAccountInput{
				Name: "Card", Type: core.AccountCreditCard, CreditLimit: core.Ptr(dec("1e14")),
				StatementDate: core.Ptr(5), DueDate: core.Ptr(25),
			})
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestBalanceOverflowRollsBackTheWrite(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, newStore(t))
			checking := f.account("Checking", core.AccountChecking)
			require.NoError(t, f.s.SetBalance(f.ctx, owner, checking.ID, core.MaxBalance))

			_, err := f.l.CreateTransaction(f.ctx, owner, ledger.CreateTransactionInput{
				Type: core.TypeIncome, Amount: dec("1"), Date: testNow, AccountID: core.Ptr(checking.ID),
			})
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.Zero(t, f.count())
			f.assertBalance(checking.ID, core.MaxBalance.String())
		})
	}
}

func TestIncomeAlwaysUsesIncomeCategory(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)
	food, err := f.l.CreateCategory(f.ctx, owner, "Food")
	require.NoError(t, err)

	first := f.create(ledger.CreateTransactionInput{
		Type: core.TypeIncome, Amount: dec("-1000"), AccountID: core.Ptr(checking.ID), CategoryID: core.Ptr(food.ID),
	})
	second := f.create(ledger.CreateTransactionInput{Type: core.TypeIncome, Amount: dec("5"), AccountID: core.Ptr(checking.ID)})

	income, err := f.s.GetCategoryByName(f.ctx, owner, core.CategoryIncome)
	require.NoError(t, err)
	assert.Equal(t, income.ID, core.Deref(first.CategoryID))
	assert.Equal(t, income.ID, core.Deref(second.CategoryID))
	assert.True(t, first.Amount.Equal(dec("1000")), "income amount is normalized positive")
	f.assertBalance(checking.ID, "1005")

	again, err := f.l.EnsureReservedCategory(f.ctx, owner, core.CategoryIncome)
	require.NoError(t, err)
	assert.Equal(t, income.ID, again.ID)
}

func TestExpenseCategoryMustExist(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)

	_, err := f.l.CreateTransaction(f.ctx, owner, ledger.CreateTransactionInput{
		Type: core.TypeExpense, Amount: dec("5"), Date: testNow, AccountID: core.Ptr(checking.ID), CategoryID: core.Ptr("missing"),
	})
	assert.ErrorIs(t, err, core.ErrReference)
	f.assertBalance(checking.ID, "0")
}

func TestFailedWriteLeavesNothingBehind(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			checking := f.account("Checking", core.AccountChecking)

			// Income creates the reserved category inside the failing transaction
			_, err := f.l.CreateTransaction(f.ctx, owner, ledger.CreateTransactionInput{
				Type: core.TypeIncome, Amount: dec("10"), Date: testNow, AccountID: core.Ptr("nope"),
			})
			assert.ErrorIs(t, err, core.ErrReference)

			_, err = f.l.CreateTransaction(f.ctx, owner, ledger.CreateTransactionInput{
				Type: core.TypeTransfer, Amount: dec("10"), Date: testNow,
				FromAccountID: core.Ptr(checking.ID), ToAccountID: core.Ptr("nope"),
			})
			assert.ErrorIs(t, err, core.ErrReference)

			cats, err := f.l.ListCategories(f.ctx, owner)
			require.NoError(t, err)
			assert.Empty(t, cats)
			assert.Zero(t, f.count())
			f.assertBalance(checking.ID, "0")
			assert.Empty(t, f.events.events)
		})
	}
}

func TestTransferLegs(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)
	savings := f.account("Savings", core.AccountSavings)

	debit := f.transfer(checking.ID, savings.ID, "-25.50")
	require.NotNil(t, debit.TransferGroupID)

	d, c, err := f.l.TransferLegs(f.ctx, owner, *debit.TransferGroupID)
	require.NoError(t, err)
	assert.Equal(t, debit.ID, d.ID)
	assert.Equal(t, core.LegDebit, d.Leg)
	assert.Equal(t, core.LegCredit, c.Leg)
	assert.True(t, d.Amount.Equal(dec("-25.50")))
	assert.True(t, c.Amount.Equal(dec("25.50")))
	assert.Equal(t, checking.ID, core.Deref(d.AccountID))
	assert.Equal(t, savings.ID, core.Deref(c.AccountID))
	assert.Equal(t, "Transfer to Savings", d.Description)
	assert.Equal(t, "Transfer from Checking", c.Description)
	assert.Equal(t, core.Deref(d.CategoryID), core.Deref(c.CategoryID))

	transferCat, err := f.s.GetCategoryByName(f.ctx, owner, core.CategoryTransfer)
	require.NoError(t, err)
	assert.Equal(t, transferCat.ID, core.Deref(d.CategoryID))

	f.assertBalance(checking.ID, "-25.50")
	f.assertBalance(savings.ID, "25.50")

	require.Len(t, f.events.events, 1)
	assert.Equal(t, core.EventTransactionCreated, f.events.events[0].Kind)
	assert.Len(t, f.events.events[0].Transactions, 2)
}

func TestTransferToUntrackedAccountOnlyMovesTrackedLeg(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)
	wallet := f.account("Wallet", core.AccountCash)

	f.transfer(checking.ID, wallet.ID, "40")
	f.assertBalance(checking.ID, "-40")

	w, err := f.l.GetAccount(f.ctx, owner, wallet.ID)
	require.NoError(t, err)
	assert.Nil(t, w.Balance)
}

func TestDeletingOneLegRemovesThePair(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			checking := f.account("Checking", core.AccountChecking)
			savings := f.account("Savings", core.AccountSavings)

			debit := f.transfer(checking.ID, savings.ID, "20")
			_, credit, err := f.l.TransferLegs(f.ctx, owner, *debit.TransferGroupID)
			require.NoError(t, err)

			require.NoError(t, f.l.DeleteTransaction(f.ctx, owner, credit.ID))
			assert.Zero(t, f.count())
			f.assertBalance(checking.ID, "0")
			f.assertBalance(savings.ID, "0")

			_, err = f.l.GetTransaction(f.ctx, owner, debit.ID)
			assert.ErrorIs(t, err, core.ErrNotFound)

			last := f.events.events[len(f.events.events)-1]
			assert.Equal(t, core.EventTransactionDeleted, last.Kind)
			assert.ElementsMatch(t, []string{debit.ID, credit.ID}, last.TransactionIDs())
		})
	}
}

func TestDeleteUnknownTransaction(t *testing.T) {
	f := newFixture(t, memory.New())
	err := f.l.DeleteTransaction(f.ctx, owner, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateExpensePartially(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)
	food, err := f.l.CreateCategory(f.ctx, owner, "Food")
	require.NoError(t, err)

	tx := f.create(ledger.CreateTransactionInput{
		Type: core.TypeExpense, Amount: dec("12"), AccountID: core.Ptr(checking.ID),
		CategoryID: core.Ptr(food.ID), Description: "lunch",
	})

	updated, err := f.l.UpdateTransaction(f.ctx, owner, tx.ID, ledger.TransactionPatch{Amount: core.Ptr(dec("15.25"))})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(dec("-15.25")))
	assert.Equal(t, "lunch", updated.Description)
	assert.Equal(t, food.ID, core.Deref(updated.CategoryID))
	assert.True(t, updated.Date.Equal(tx.Date))
	f.assertBalance(checking.ID, "-15.25")

	// Clearing the category keeps everything else
	updated, err = f.l.UpdateTransaction(f.ctx, owner, tx.ID, ledger.TransactionPatch{CategoryID: core.Ptr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.CategoryID)
	assert.True(t, updated.Amount.Equal(dec("-15.25")))
}

func TestUpdateMovesBalanceBetweenAccounts(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)
	savings := f.account("Savings", core.AccountSavings)

	tx := f.expense(checking.ID, "30")
	_, err := f.l.UpdateTransaction(f.ctx, owner, tx.ID, ledger.TransactionPatch{AccountID: core.Ptr(savings.ID)})
	require.NoError(t, err)
	f.assertBalance(checking.ID, "0")
	f.assertBalance(savings.ID, "-30")

	// income flip keeps the account and forces the Income category
	updated, err := f.l.UpdateTransaction(f.ctx, owner, tx.ID, ledger.TransactionPatch{Type: core.Ptr(core.TypeIncome)})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(dec("30")))
	f.assertBalance(savings.ID, "30")
	income, err := f.s.GetCategoryByName(f.ctx, owner, core.CategoryIncome)
	require.NoError(t, err)
	assert.Equal(t, income.ID, core.Deref(updated.CategoryID))

	// back to expense drops the reserved category
	updated, err = f.l.UpdateTransaction(f.ctx, owner, tx.ID, ledger.TransactionPatch{Type: core.Ptr(core.TypeExpense)})
	require.NoError(t, err)
	assert.Nil(t, updated.CategoryID)
	f.assertBalance(savings.ID, "-30")
}

func TestUpdateRejectsInvalidCombinationWithoutSideEffects(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)
	savings := f.account("Savings", core.AccountSavings)
	tx := f.expense(checking.ID, "10")

	_, err := f.l.UpdateTransaction(f.ctx, owner, tx.ID, ledger.TransactionPatch{ToAccountID: core.Ptr(savings.ID)})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.l.UpdateTransaction(f.ctx, owner, tx.ID, ledger.TransactionPatch{Type: core.Ptr(core.TypeTransfer)})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.l.UpdateTransaction(f.ctx, owner, tx.ID, ledger.TransactionPatch{AccountID: core.Ptr("ghost")})
	assert.ErrorIs(t, err, core.ErrReference)

	_, err = f.l.UpdateTransaction(f.ctx, owner, "missing", ledger.TransactionPatch{Amount: core.Ptr(dec("1"))})
	assert.ErrorIs(t, err, core.ErrNotFound)

	f.assertBalance(checking.ID, "-10")
	stored, err := f.l.GetTransaction(f.ctx, owner, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, checking.ID, core.Deref(stored.AccountID))
}

func TestUpdateTransferRewritesBothLegs(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			checking := f.account("Checking", core.AccountChecking)
			savings := f.account("Savings", core.AccountSavings)
			holiday := f.account("Holiday", core.AccountSavings)

			debit := f.transfer(checking.ID, savings.ID, "20")
			group := *debit.TransferGroupID

			_, err := f.l.UpdateTransaction(f.ctx, owner, debit.ID, ledger.TransactionPatch{Amount: core.Ptr(dec("30"))})
			require.NoError(t, err)
			f.assertBalance(checking.ID, "-30")
			f.assertBalance(savings.ID, "30")

			_, credit, err := f.l.TransferLegs(f.ctx, owner, group)
			require.NoError(t, err)
			updated, err := f.l.UpdateTransaction(f.ctx, owner, credit.ID, ledger.TransactionPatch{ToAccountID: core.Ptr(holiday.ID)})
			require.NoError(t, err)
			assert.Equal(t, credit.ID, updated.ID)
			assert.Equal(t, holiday.ID, core.Deref(updated.AccountID))

			d, c, err := f.l.TransferLegs(f.ctx, owner, group)
			require.NoError(t, err)
			assert.Equal(t, debit.ID, d.ID)
			assert.Equal(t, holiday.ID, core.Deref(d.ToAccountID))
			assert.Equal(t, "Transfer to Holiday", d.Description)
			assert.Equal(t, "Transfer from Checking", c.Description)
			assert.True(t, d.Amount.Equal(dec("-30")))
			assert.True(t, c.Amount.Equal(dec("30")))

			f.assertBalance(checking.ID, "-30")
			f.assertBalance(savings.ID, "0")
			f.assertBalance(holiday.ID, "30")
			assert.Equal(t, 2, f.count())
		})
	}
}

func TestUpdateChangesTransferShape(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			checking := f.account("Checking", core.AccountChecking)
			savings := f.account("Savings", core.AccountSavings)

			debit := f.transfer(checking.ID, savings.ID, "20")

			// transfer -> expense keeps the edited row and drops its sibling
			exp, err := f.l.UpdateTransaction(f.ctx, owner, debit.ID, ledger.TransactionPatch{
				Type: core.Ptr(core.TypeExpense), AccountID: core.Ptr(checking.ID),
			})
			require.NoError(t, err)
			assert.Equal(t, debit.ID, exp.ID)
			assert.Nil(t, exp.TransferGroupID)
			assert.Nil(t, exp.FromAccountID)
			assert.Equal(t, core.LegNone, exp.Leg)
			assert.True(t, exp.Amount.Equal(dec("-20")))
			assert.Equal(t, 1, f.count())
			f.assertBalance(checking.ID, "-20")
			f.assertBalance(savings.ID, "0")

			// expense -> transfer adds the credit leg
			leg, err := f.l.UpdateTransaction(f.ctx, owner, exp.ID, ledger.TransactionPatch{
				Type: core.Ptr(core.TypeTransfer), FromAccountID: core.Ptr(savings.ID), ToAccountID: core.Ptr(checking.ID),
			})
			require.NoError(t, err)
			assert.Equal(t, exp.ID, leg.ID)
			assert.Equal(t, core.LegDebit, leg.Leg)
			require.NotNil(t, leg.TransferGroupID)
			assert.Equal(t, 2, f.count())
			f.assertBalance(savings.ID, "-20")
			f.assertBalance(checking.ID, "20")

			_, _, err = f.l.TransferLegs(f.ctx, owner, *leg.TransferGroupID)
			require.NoError(t, err)

			res, err := f.l.RecalculateBalances(f.ctx, owner)
			require.NoError(t, err)
			assert.Equal(t, 2, res.TransactionsProcessed)
			f.assertBalance(savings.ID, "-20")
			f.assertBalance(checking.ID, "20")
		})
	}
}

func TestDeleteCategoryDetachesTransactions(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			checking := f.account("Checking", core.AccountChecking)
			food, err := f.l.CreateCategory(f.ctx, owner, "Food")
			require.NoError(t, err)

			tx := f.create(ledger.CreateTransactionInput{
				Type: core.TypeExpense, Amount: dec("9.99"), AccountID: core.Ptr(checking.ID),
				CategoryID: core.Ptr(food.ID), Description: "pizza",
			})

			detached, err := f.l.DeleteCategory(f.ctx, owner, food.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, detached)

			got, err := f.l.GetTransaction(f.ctx, owner, tx.ID)
			require.NoError(t, err)
			assert.Nil(t, got.CategoryID)
			assert.Equal(t, "pizza", got.Description)
			assert.True(t, got.Amount.Equal(tx.Amount))
			assert.Equal(t, tx.AccountID, got.AccountID)
			assert.True(t, got.Date.Equal(tx.Date))

			_, err = f.s.GetCategory(f.ctx, owner, food.ID)
			assert.ErrorIs(t, err, core.ErrNotFound)
			f.assertBalance(checking.ID, "-9.99")
		})
	}
}

func TestDeleteCategoryUsedByBudget(t *testing.T) {
	f := newFixture(t, memory.New())
	food, err := f.l.CreateCategory(f.ctx, owner, "Food")
	require.NoError(t, err)
	_, err = f.l.CreateBudget(f.ctx, owner, ledger.CreateBudgetInput{
		Name: "Groceries", CategoryID: food.ID, Amount: dec("100"), Period: core.Monthly,
	})
	require.NoError(t, err)

	_, err = f.l.DeleteCategory(f.ctx, owner, food.ID)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestDeleteAccountInUse(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)
	savings := f.account("Savings", core.AccountSavings)
	f.transfer(checking.ID, savings.ID, "5")

	err := f.l.DeleteAccount(f.ctx, owner, savings.ID)
	assert.ErrorIs(t, err, core.ErrConflict)

	spare := f.account("Spare", core.AccountCash)
	require.NoError(t, f.l.DeleteAccount(f.ctx, owner, spare.ID))
	_, err = f.l.GetAccount(f.ctx, owner, spare.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAccountFieldsFollowType(t *testing.T) {
	f := newFixture(t, memory.New())

	card, err := f.l.CreateAccount(f.ctx, owner, ledger.CreateAccountInput{
		Name: "Visa", Type: core.AccountCreditCard, CreditLimit: core.Ptr(dec("1500")),
		StatementDate: core.Ptr(5), DueDate: core.Ptr(25),
	})
	require.NoError(t, err)
	assert.Nil(t, card.Balance)

	_, err = f.l.CreateAccount(f.ctx, owner, ledger.CreateAccountInput{Name: "Bad", Type: core.AccountCreditCard})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.l.CreateAccount(f.ctx, owner, ledger.CreateAccountInput{
		Name: "Bad", Type: core.AccountChecking, CreditLimit: core.Ptr(dec("10")),
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.l.CreateAccount(f.ctx, owner, ledger.CreateAccountInput{
		Name: "Wallet", Type: core.AccountCash, OpeningBalance: core.Ptr(dec("10")),
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	opened, err := f.l.CreateAccount(f.ctx, owner, ledger.CreateAccountInput{
		Name: "Savings", Type: core.AccountSavings, OpeningBalance: core.Ptr(dec("250")),
	})
	require.NoError(t, err)
	f.assertBalance(opened.ID, "250")

	_, err = f.l.CreateAccount(f.ctx, owner, ledger.CreateAccountInput{Name: "savings", Type: core.AccountChecking})
	assert.ErrorIs(t, err, core.ErrConflict)

	renamed, err := f.l.UpdateAccount(f.ctx, owner, card.ID, ledger.AccountPatch{Name: core.Ptr("Visa Gold"), DueDate: core.Ptr(28)})
	require.NoError(t, err)
	assert.Equal(t, "Visa Gold", renamed.Name)
	assert.Equal(t, 28, core.Deref(renamed.DueDate))

	_, err = f.l.UpdateAccount(f.ctx, owner, card.ID, ledger.AccountPatch{StatementDate: core.Ptr(32)})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestOwnersAreIsolated(t *testing.T) {
	f := newFixture(t, memory.New())
	checking := f.account("Checking", core.AccountChecking)
	tx := f.expense(checking.ID, "10")

	_, err := f.l.GetTransaction(f.ctx, "intruder", tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = f.l.DeleteTransaction(f.ctx, "intruder", tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.l.CreateTransaction(f.ctx, "intruder", ledger.CreateTransactionInput{
		Type: core.TypeExpense, Amount: dec("1"), Date: testNow, AccountID: core.Ptr(checking.ID),
	})
	assert.ErrorIs(t, err, core.ErrReference)
	f.assertBalance(checking.ID, "-10")
}

type failingPublisher struct{}

func (failingPublisher) PublishLedgerEvent(context.Context, core.LedgerEvent) error {
	return errors.New("broker down")
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	s := memory.New()
	l := ledger.New(s, ledger.WithEvents(failingPublisher{}))
	ctx := context.Background()

	acc, err := l.CreateAccount(ctx, owner, ledger.CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	require.NoError(t, err)
	_, err = l.CreateTransaction(ctx, owner, ledger.CreateTransactionInput{
		Type: core.TypeExpense, Amount: dec("3"), Date: testNow, AccountID: core.Ptr(acc.ID),
	})
	require.NoError(t, err)

	_, err = l.RequestRecalculation(ctx, owner)
	assert.Error(t, err)
}
