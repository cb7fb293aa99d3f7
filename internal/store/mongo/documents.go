package mongo

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Amounts are stored as integer cents so $inc stays exact. name_key holds the
// lowercased name for the case-insensitive unique indexes.

type accountDoc struct {
	ID               string `bson:"_id"`
	OwnerID          string `bson:"owner_id"`
	Name             string `bson:"name"`
	NameKey          string `bson:"name_key"`
	Type             string `bson:"type"`
	BalanceCents     *int64 `bson:"balance_cents,omitempty"`
	CreditLimitCents *int64 `bson:"credit_limit_cents,omitempty"`
	StatementDate    *int   `bson:"statement_date,omitempty"`
	DueDate          *int   `bson:"due_date,omitempty"`
	CreatedAt        int64  `bson:"created_at"`
	UpdatedAt        int64  `bson:"updated_at"`
}

type categoryDoc struct {
	ID        string `bson:"_id"`
	OwnerID   string `bson:"owner_id"`
	Name      string `bson:"name"`
	NameKey   string `bson:"name_key"`
	CreatedAt int64  `bson:"created_at"`
}

type transactionDoc struct {
	ID              string    `bson:"_id"`
	OwnerID         string    `bson:"owner_id"`
	Type            string    `bson:"type"`
	AmountCents     int64     `bson:"amount_cents"`
	Date            time.Time `bson:"date"`
	Description     string    `bson:"description"`
	CategoryID      *string   `bson:"category_id,omitempty"`
	AccountID       *string   `bson:"account_id,omitempty"`
	FromAccountID   *string   `bson:"from_account_id,omitempty"`
	ToAccountID     *string   `bson:"to_account_id,omitempty"`
	TransferGroupID *string   `bson:"transfer_group_id,omitempty"`
	Leg             string    `bson:"leg,omitempty"`
	RecurringID     *string   `bson:"recurring_id,omitempty"`
	CreatedAt       int64     `bson:"created_at"`
	UpdatedAt       int64     `bson:"updated_at"`
}

type budgetDoc struct {
	ID               string    `bson:"_id"`
	OwnerID          string    `bson:"owner_id"`
	Name             string    `bson:"name"`
	NameKey          string    `bson:"name_key"`
	CategoryID       string    `bson:"category_id"`
	AmountCents      int64     `bson:"amount_cents"`
	Period           string    `bson:"period"`
	StartDate        time.Time `bson:"start_date"`
	EndDate          time.Time `bson:"end_date"`
	WarningThreshold string    `bson:"warning_threshold"`
	AlertThreshold   string    `bson:"alert_threshold"`
	IsActive         bool      `bson:"is_active"`
	CreatedAt        int64     `bson:"created_at"`
	UpdatedAt        int64     `bson:"updated_at"`
}

type insightDoc struct {
	ID        string `bson:"_id"`
	OwnerID   string `bson:"owner_id"`
	Hash      string `bson:"hash"`
	Content   string `bson:"content"`
	CreatedAt int64  `bson:"created_at"`
}

type recurringDoc struct {
	ID            string     `bson:"_id"`
	OwnerID       string     `bson:"owner_id"`
	Type          string     `bson:"type"`
	AmountCents   int64      `bson:"amount_cents"`
	AccountID     string     `bson:"account_id"`
	CategoryID    *string    `bson:"category_id,omitempty"`
	Description   string     `bson:"description"`
	Every         string     `bson:"every"`
	StartDate     time.Time  `bson:"start_date"`
	EndDate       *time.Time `bson:"end_date,omitempty"`
	LastExecution *time.Time `bson:"last_execution,omitempty"`
}

func nameKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func centsOf(d *decimal.Decimal) *int64 {
	if d == nil {
		return nil
	}
	return core.Ptr(core.ToCents(*d))
}

func decimalOf(c *int64) *decimal.Decimal {
	if c == nil {
		return nil
	}
	return core.Ptr(core.FromCents(*c))
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return core.Ptr(t.UTC())
}

func toAccountDoc(a *core.Account) accountDoc {
	return accountDoc{
		ID: a.ID, OwnerID: a.OwnerID, Name: a.Name, NameKey: nameKey(a.Name), Type: string(a.Type),
		BalanceCents: centsOf(a.Balance), CreditLimitCents: centsOf(a.CreditLimit),
		StatementDate: a.StatementDate, DueDate: a.DueDate,
		CreatedAt: a.CreatedAt.UnixNano(), UpdatedAt: a.UpdatedAt.UnixNano(),
	}
}

func (d accountDoc) account() core.Account {
	return core.Account{
		ID: d.ID, OwnerID: d.OwnerID, Name: d.Name, Type: core.AccountType(d.Type),
		Balance: decimalOf(d.BalanceCents), CreditLimit: decimalOf(d.CreditLimitCents),
		StatementDate: d.StatementDate, DueDate: d.DueDate,
		CreatedAt: time.Unix(0, d.CreatedAt).UTC(), UpdatedAt: time.Unix(0, d.UpdatedAt).UTC(),
	}
}

func toCategoryDoc(c *core.Category) categoryDoc {
	return categoryDoc{ID: c.ID, OwnerID: c.OwnerID, Name: c.Name, NameKey: nameKey(c.Name), CreatedAt: c.CreatedAt.UnixNano()}
}

func (d categoryDoc) category() core.Category {
	return core.Category{ID: d.ID, OwnerID: d.OwnerID, Name: d.Name, CreatedAt: time.Unix(0, d.CreatedAt).UTC()}
}

func toTransactionDoc(t *core.Transaction) transactionDoc {
	return transactionDoc{
		ID: t.ID, OwnerID: t.OwnerID, Type: string(t.Type), AmountCents: core.ToCents(t.Amount),
		Date: t.Date.UTC(), Description: t.Description, CategoryID: t.CategoryID, AccountID: t.AccountID,
		FromAccountID: t.FromAccountID, ToAccountID: t.ToAccountID, TransferGroupID: t.TransferGroupID,
		Leg: string(t.Leg), RecurringID: t.RecurringID,
		CreatedAt: t.CreatedAt.UnixNano(), UpdatedAt: t.UpdatedAt.UnixNano(),
	}
}

func (d transactionDoc) transaction() core.Transaction {
	return core.Transaction{
		ID: d.ID, OwnerID: d.OwnerID, Type: core.TransactionType(d.Type), Amount: core.FromCents(d.AmountCents),
		Date: d.Date.UTC(), Description: d.Description, CategoryID: d.CategoryID, AccountID: d.AccountID,
		FromAccountID: d.FromAccountID, ToAccountID: d.ToAccountID, TransferGroupID: d.TransferGroupID,
		Leg: core.Leg(d.Leg), RecurringID: d.RecurringID,
		CreatedAt: time.Unix(0, d.CreatedAt).UTC(), UpdatedAt: time.Unix(0, d.UpdatedAt).UTC(),
	}
}

func toBudgetDoc(b *core.Budget) budgetDoc {
	return budgetDoc{
		ID: b.ID, OwnerID: b.OwnerID, Name: b.Name, NameKey: nameKey(b.Name), CategoryID: b.CategoryID,
		AmountCents: core.ToCents(b.Amount), Period: string(b.Period),
		StartDate: b.StartDate.UTC(), EndDate: b.EndDate.UTC(),
		WarningThreshold: b.WarningThreshold.String(), AlertThreshold: b.AlertThreshold.String(),
		IsActive: b.IsActive, CreatedAt: b.CreatedAt.UnixNano(), UpdatedAt: b.UpdatedAt.UnixNano(),
	}
}

func (d budgetDoc) budget() (core.Budget, error) {
	warning, err := decimal.NewFromString(d.WarningThreshold)
	if err != nil {
		return core.Budget{}, err
	}
	alert, err := decimal.NewFromString(d.AlertThreshold)
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		ID: d.ID, OwnerID: d.OwnerID, Name: d.Name, CategoryID: d.CategoryID,
		Amount: core.FromCents(d.AmountCents), Period: core.Period(d.Period),
		StartDate: d.StartDate.UTC(), EndDate: d.EndDate.UTC(),
		WarningThreshold: warning, AlertThreshold: alert, IsActive: d.IsActive,
		CreatedAt: time.Unix(0, d.CreatedAt).UTC(), UpdatedAt: time.Unix(0, d.UpdatedAt).UTC(),
	}, nil
}

func (d insightDoc) insight() core.Insight {
	return core.Insight{ID: d.ID, OwnerID: d.OwnerID, Hash: d.Hash, Content: d.Content, CreatedAt: time.Unix(0, d.CreatedAt).UTC()}
}

func toRecurringDoc(r *core.RecurringTransaction) recurringDoc {
	return recurringDoc{
		ID: r.ID, OwnerID: r.OwnerID, Type: string(r.Type), AmountCents: core.ToCents(r.Amount),
		AccountID: r.AccountID, CategoryID: r.CategoryID, Description: r.Description, Every: string(r.Every),
		StartDate: r.StartDate.UTC(), EndDate: utcPtr(r.EndDate), LastExecution: utcPtr(r.LastExecution),
	}
}

func (d recurringDoc) recurring() core.RecurringTransaction {
	return core.RecurringTransaction{
		ID: d.ID, OwnerID: d.OwnerID, Type: core.TransactionType(d.Type), Amount: core.FromCents(d.AmountCents),
		AccountID: d.AccountID, CategoryID: d.CategoryID, Description: d.Description, Every: core.Repetition(d.Every),
		StartDate: d.StartDate.UTC(), EndDate: utcPtr(d.EndDate), LastExecution: utcPtr(d.LastExecution),
	}
}
