package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateFields(t *testing.T) {
	a, b := Ptr("a"), Ptr("b")
	cases := []struct {
		name string
		typ  TransactionType
		f    AccountFields
		ok   bool
	}{
		{"income with account", TypeIncome, AccountFields{AccountID: a}, true},
		{"expense with account", TypeExpense, AccountFields{AccountID: a}, true},
		{"income without account", TypeIncome, AccountFields{}, false},
		{"expense with from", TypeExpense, AccountFields{AccountID: a, FromAccountID: b}, false},
		{"income with to", TypeIncome, AccountFields{AccountID: a, ToAccountID: b}, false},
		{"transfer ok", TypeTransfer, AccountFields{FromAccountID: a, ToAccountID: b}, true},
		{"transfer same account", TypeTransfer, AccountFields{FromAccountID: a, ToAccountID: Ptr("a")}, false},
		{"transfer missing to", TypeTransfer, AccountFields{FromAccountID: a}, false},
		{"transfer with account", TypeTransfer, AccountFields{AccountID: a, FromAccountID: a, ToAccountID: b}, false},
		{"unknown type", TransactionType("refund"), AccountFields{AccountID: a}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFields(tc.typ, tc.f)
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatalf("expected error")
				}
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
			}
		})
	}
}

func TestAccountValidate(t *testing.T) {
	zero := decimal.Zero
	limit := dec("1000")
	cases := []struct {
		name string
		a    Account
		ok   bool
	}{
		{"checking with balance", Account{Name: "Main", Type: AccountChecking, Balance: &zero}, true},
		{"savings without balance", Account{Name: "Rainy", Type: AccountSavings}, false},
		{"card ok", Account{Name: "Visa", Type: AccountCreditCard, CreditLimit: &limit, StatementDate: Ptr(5), DueDate: Ptr(25)}, true},
		{"card zero limit", Account{Name: "Visa", Type: AccountCreditCard, CreditLimit: &zero, StatementDate: Ptr(5), DueDate: Ptr(25)}, false},
		{"card due date 32", Account{Name: "Visa", Type: AccountCreditCard, CreditLimit: &limit, StatementDate: Ptr(5), DueDate: Ptr(32)}, false},
		{"card with balance", Account{Name: "Visa", Type: AccountCreditCard, Balance: &zero, CreditLimit: &limit, StatementDate: Ptr(5), DueDate: Ptr(25)}, false},
		{"cash bare", Account{Name: "Wallet", Type: AccountCash}, true},
		{"cash with balance", Account{Name: "Wallet", Type: AccountCash, Balance: &zero}, false},
		{"checking with card fields", Account{Name: "Main", Type: AccountChecking, Balance: &zero, DueDate: Ptr(3)}, false},
		{"empty name", Account{Type: AccountCash}, false},
		{"bad type", Account{Name: "x", Type: "crypto"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.a.Validate()
			if tc.ok != (err == nil) {
				t.Fatalf("ok=%v, err=%v", tc.ok, err)
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	date := NewDate(2025, 3, 1)
	group := Ptr("g1")
	good := []Transaction{
		{Type: TypeIncome, Amount: dec("10"), Date: date, AccountID: Ptr("a")},
		{Type: TypeExpense, Amount: dec("-10.50"), Date: date, AccountID: Ptr("a")},
		{Type: TypeTransfer, Amount: dec("-5"), Date: date, AccountID: Ptr("a"), FromAccountID: Ptr("a"), ToAccountID: Ptr("b"), TransferGroupID: group, Leg: LegDebit},
		{Type: TypeTransfer, Amount: dec("5"), Date: date, AccountID: Ptr("b"), FromAccountID: Ptr("a"), ToAccountID: Ptr("b"), TransferGroupID: group, Leg: LegCredit},
	}
	for i, tx := range good {
		if err := tx.Validate(); err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
	}

	bad := []Transaction{
		{Type: TypeIncome, Amount: dec("-10"), Date: date, AccountID: Ptr("a")},
		{Type: TypeExpense, Amount: dec("10"), Date: date, AccountID: Ptr("a")},
		{Type: TypeExpense, Amount: dec("-1.005"), Date: date, AccountID: Ptr("a")},
		{Type: TypeExpense, Amount: dec("-1"), AccountID: Ptr("a")},
		{Type: TypeIncome, Amount: decimal.Zero, Date: date, AccountID: Ptr("a")},
		{Type: TypeTransfer, Amount: dec("-5"), Date: date, AccountID: Ptr("b"), FromAccountID: Ptr("a"), ToAccountID: Ptr("b"), TransferGroupID: group, Leg: LegDebit},
		{Type: TypeTransfer, Amount: dec("5"), Date: date, AccountID: Ptr("b"), FromAccountID: Ptr("a"), ToAccountID: Ptr("b"), Leg: LegCredit},
		{Type: TypeExpense, Amount: dec("-1"), Date: date, AccountID: Ptr("a"), TransferGroupID: group},
	}
	for i, tx := range bad {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	start, end := CurrentPeriod(Monthly, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))
	base := Budget{
		Name: "Food", CategoryID: "c", Amount: dec("100"), Period: Monthly,
		StartDate: start, EndDate: end,
		WarningThreshold: dec("75"), AlertThreshold: dec("90"), IsActive: true,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutations := []func(*Budget){
		func(b *Budget) { b.Amount = decimal.Zero },
		func(b *Budget) { b.Period = "weekly" },
		func(b *Budget) { b.AlertThreshold = dec("50") },
		func(b *Budget) { b.WarningThreshold = dec("0") },
		func(b *Budget) { b.AlertThreshold = dec("101") },
		func(b *Budget) { b.EndDate = b.StartDate.Add(-time.Hour) },
		func(b *Budget) { b.CategoryID = "" },
	}
	for i, m := range mutations {
		b := base
		m(&b)
		if err := b.Validate(); err == nil {
			t.Fatalf("mutation %d expected error", i)
		}
	}
}
