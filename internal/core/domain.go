package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountSavings    AccountType = "savings"
	AccountChecking   AccountType = "checking"
	AccountCreditCard AccountType = "credit_card"
	AccountCash       AccountType = "cash"
	AccountInvestment AccountType = "investment"
)

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

const (
	LegNone   Leg = ""
	LegDebit  Leg = "debit"
	LegCredit Leg = "credit"
)

const (
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

const (
	RepeatDaily   Repetition = "daily"
	RepeatWeekly  Repetition = "weekly"
	RepeatMonthly Repetition = "monthly"
	RepeatYearly  Repetition = "yearly"
)

// Reserved category names the ledger creates on demand.
const (
	CategoryIncome   = "Income"
	CategoryTransfer = "Transfer"
)

// MaxDescriptionLength bounds free-text descriptions.
const MaxDescriptionLength = 200

type (
	AccountType     string
	TransactionType string
	Leg             string
	Period          string
	Repetition      string

	Account struct {
		ID            string           `json:"id"`
		OwnerID       string           `json:"ownerId"`
		Name          string           `json:"name"`
		Type          AccountType      `json:"type"`
		Balance       *decimal.Decimal `json:"balance,omitempty"`
		CreditLimit   *decimal.Decimal `json:"creditLimit,omitempty"`
		StatementDate *int             `json:"statementDate,omitempty"`
		DueDate       *int             `json:"dueDate,omitempty"`
		CreatedAt     time.Time        `json:"createdAt"`
		UpdatedAt     time.Time        `json:"updatedAt"`
	}

	Category struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"ownerId"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Transaction is one ledger row. A transfer is two rows sharing
	// TransferGroupID: a debit leg on FromAccountID and a credit leg on ToAccountID.
	Transaction struct {
		ID              string          `json:"id"`
		OwnerID         string          `json:"ownerId"`
		Type            TransactionType `json:"type"`
		Amount          decimal.Decimal `json:"amount"`
		Date            time.Time       `json:"date"`
		Description     string          `json:"description"`
		CategoryID      *string         `json:"categoryId,omitempty"`
		AccountID       *string         `json:"accountId,omitempty"`
		FromAccountID   *string         `json:"fromAccountId,omitempty"`
		ToAccountID     *string         `json:"toAccountId,omitempty"`
		TransferGroupID *string         `json:"transferGroupId,omitempty"`
		Leg             Leg             `json:"leg,omitempty"`
		RecurringID     *string         `json:"recurringId,omitempty"`
		CreatedAt       time.Time       `json:"createdAt"`
		UpdatedAt       time.Time       `json:"updatedAt"`
	}

	// AccountFields is the account reference combination of a transaction.
	AccountFields struct {
		AccountID     *string
		FromAccountID *string
		ToAccountID   *string
	}

	Budget struct {
		ID               string          `json:"id"`
		OwnerID          string          `json:"ownerId"`
		Name             string          `json:"name"`
		CategoryID       string          `json:"categoryId"`
		Amount           decimal.Decimal `json:"amount"`
		Period           Period          `json:"period"`
		StartDate        time.Time       `json:"startDate"`
		EndDate          time.Time       `json:"endDate"`
		WarningThreshold decimal.Decimal `json:"warningThreshold"`
		AlertThreshold   decimal.Decimal `json:"alertThreshold"`
		IsActive         bool            `json:"isActive"`
		CreatedAt        time.Time       `json:"createdAt"`
		UpdatedAt        time.Time       `json:"updatedAt"`
	}

	// Insight is a cached recommendation keyed by the hash of the transaction set
	// it was generated from.
	Insight struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"ownerId"`
		Hash      string    `json:"hash"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"createdAt"`
	}

	RecurringTransaction struct {
		ID            string          `json:"id"`
		OwnerID       string          `json:"ownerId"`
		Type          TransactionType `json:"type"`
		Amount        decimal.Decimal `json:"amount"`
		AccountID     string          `json:"accountId"`
		CategoryID    *string         `json:"categoryId,omitempty"`
		Description   string          `json:"description"`
		Every         Repetition      `json:"every"`
		StartDate     time.Time       `json:"startDate"`
		EndDate       *time.Time      `json:"endDate,omitempty"`
		LastExecution *time.Time      `json:"lastExecution,omitempty"`
	}
)

var (
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Deref returns *p or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (t AccountType) IsValid() bool {
	switch t {
	case AccountSavings, AccountChecking, AccountCreditCard, AccountCash, AccountInvestment:
		return true
	}
	return false
}

// TracksBalance reports whether the reconciliation engine maintains a balance for
// accounts of this type.
func (t AccountType) TracksBalance() bool {
	return t == AccountSavings || t == AccountChecking
}

func (t TransactionType) IsValid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

func (p Period) IsValid() bool {
	return p == Monthly || p == Yearly
}

func (r Repetition) IsValid() bool {
	switch r {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return Validationf("account %s", ErrEmptyName)
	}
	if !a.Type.IsValid() {
		return Validationf("invalid account type %q", a.Type)
	}
	hasCard := a.CreditLimit != nil || a.StatementDate != nil || a.DueDate != nil
	switch {
	case a.Type.TracksBalance():
		if hasCard {
			return Validationf("%s account cannot carry credit card fields", a.Type)
		}
		if a.Balance == nil {
			return Validationf("%s account requires a balance", a.Type)
		}
		if err := ValidateScale(*a.Balance); err != nil {
			return err
		}
		if err := CheckBalance(a.ID, *a.Balance); err != nil {
			return err
		}
	case a.Type == AccountCreditCard:
		if a.Balance != nil {
			return Validationf("credit card account cannot carry a balance")
		}
		if a.CreditLimit == nil || !a.CreditLimit.IsPositive() {
			return Validationf("credit limit must be greater than zero")
		}
		if err := ValidateAmount(*a.CreditLimit); err != nil {
			return err
		}
		if err := validateDayOfMonth("statement date", a.StatementDate); err != nil {
			return err
		}
		if err := validateDayOfMonth("due date", a.DueDate); err != nil {
			return err
		}
	default:
		if a.Balance != nil || hasCard {
			return Validationf("%s account carries neither balance nor credit card fields", a.Type)
		}
	}
	return nil
}

func validateDayOfMonth(field string, d *int) error {
	if d == nil {
		return Validationf("%s is required for credit card accounts", field)
	}
	if *d < 1 || *d > 31 {
		return Validationf("%s must be between 1 and 31", field)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Validationf("category %s", ErrEmptyName)
	}
	return nil
}

// ValidateFields checks that the account references match the transaction type.
func ValidateFields(t TransactionType, f AccountFields) error {
	switch t {
	case TypeIncome, TypeExpense:
		if f.AccountID == nil || *f.AccountID == "" {
			return Validationf("%s transactions require an account", t)
		}
		if f.FromAccountID != nil || f.ToAccountID != nil {
			return Validationf("%s transactions cannot set fromAccount or toAccount", t)
		}
	case TypeTransfer:
		if f.FromAccountID == nil || *f.FromAccountID == "" || f.ToAccountID == nil || *f.ToAccountID == "" {
			return Validationf("transfers require both fromAccount and toAccount")
		}
		if *f.FromAccountID == *f.ToAccountID {
			return Validationf("fromAccount and toAccount must be different")
		}
		if f.AccountID != nil {
			return Validationf("transfers cannot set account")
		}
	default:
		return Validationf("invalid transaction type %q", t)
	}
	return nil
}

// ValidateDescription enforces the shared description rules.
func ValidateDescription(s string) error {
	if len(s) > MaxDescriptionLength {
		return Validationf("description too long (max %d characters)", MaxDescriptionLength)
	}
	return nil
}

// Validate checks the stored-row invariants of a transaction.
func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return Validationf("invalid transaction type %q", t.Type)
	}
	if t.Date.IsZero() {
		return Validationf("date cannot be zero")
	}
	if t.Amount.IsZero() {
		return Validationf("%s", ErrInvalidAmount)
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if err := ValidateDescription(t.Description); err != nil {
		return err
	}
	switch t.Type {
	case TypeIncome, TypeExpense:
		if err := ValidateFields(t.Type, AccountFields{AccountID: t.AccountID, FromAccountID: t.FromAccountID, ToAccountID: t.ToAccountID}); err != nil {
			return err
		}
		if t.TransferGroupID != nil || t.Leg != LegNone {
			return Validationf("%s transactions cannot belong to a transfer", t.Type)
		}
		if t.Type == TypeIncome && !t.Amount.IsPositive() {
			return Validationf("income amount must be positive")
		}
		if t.Type == TypeExpense && !t.Amount.IsNegative() {
			return Validationf("expense amount must be negative")
		}
	case TypeTransfer:
		if err := ValidateFields(t.Type, AccountFields{FromAccountID: t.FromAccountID, ToAccountID: t.ToAccountID}); err != nil {
			return err
		}
		if t.TransferGroupID == nil || *t.TransferGroupID == "" {
			return Validationf("transfer rows require a transfer group")
		}
		switch t.Leg {
		case LegDebit:
			if !t.Amount.IsNegative() || Deref(t.AccountID) != *t.FromAccountID {
				return Validationf("debit leg must be negative on the source account")
			}
		case LegCredit:
			if !t.Amount.IsPositive() || Deref(t.AccountID) != *t.ToAccountID {
				return Validationf("credit leg must be positive on the destination account")
			}
		default:
			return Validationf("invalid transfer leg %q", t.Leg)
		}
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return Validationf("budget %s", ErrEmptyName)
	}
	if b.CategoryID == "" {
		return Validationf("budget requires a category")
	}
	if !b.Amount.IsPositive() {
		return Validationf("budget amount must be greater than zero")
	}
	if err := ValidateAmount(b.Amount); err != nil {
		return err
	}
	if !b.Period.IsValid() {
		return Validationf("invalid budget period %q", b.Period)
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return Validationf("budget requires start and end dates")
	}
	if b.EndDate.Before(b.StartDate) {
		return Validationf("end date must be after start date")
	}
	hundred := decimal.NewFromInt(100)
	if !b.WarningThreshold.IsPositive() || b.WarningThreshold.GreaterThan(hundred) {
		return Validationf("warning threshold must be between 0 and 100")
	}
	if b.AlertThreshold.LessThan(b.WarningThreshold) || b.AlertThreshold.GreaterThan(hundred) {
		return Validationf("alert threshold must be between the warning threshold and 100")
	}
	return nil
}

func (r RecurringTransaction) Validate() error {
	if r.Type != TypeIncome && r.Type != TypeExpense {
		return Validationf("recurring transactions must be income or expense")
	}
	if !r.Amount.IsPositive() {
		return Validationf("%s", ErrInvalidAmount)
	}
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	if r.AccountID == "" {
		return Validationf("recurring transactions require an account")
	}
	if strings.TrimSpace(r.Description) == "" {
		return Validationf("%s", ErrEmptyDescription)
	}
	if err := ValidateDescription(r.Description); err != nil {
		return err
	}
	if !r.Every.IsValid() {
		return Validationf("invalid repetition type %q", r.Every)
	}
	if r.StartDate.IsZero() {
		return Validationf("invalid start date")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return Validationf("end date must be after start date")
	}
	return nil
}
