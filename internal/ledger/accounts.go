package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// CreateAccountInput describes a new account. OpeningBalance applies to
// balance-tracked types only and defaults to zero.
type CreateAccountInput struct {
	Name           string           `json:"name"`
	Type           core.AccountType `json:"type"`
	OpeningBalance *decimal.Decimal `json:"openingBalance,omitempty"`
	CreditLimit    *decimal.Decimal `json:"creditLimit,omitempty"`
	StatementDate  *int             `json:"statementDate,omitempty"`
	DueDate        *int             `json:"dueDate,omitempty"`
}

// AccountPatch updates the mutable account fields. Type and balance are not
// editable; balances only move through transactions or recalculation.
type AccountPatch struct {
	Name          *string          `json:"name,omitempty"`
	CreditLimit   *decimal.Decimal `json:"creditLimit,omitempty"`
	StatementDate *int             `json:"statementDate,omitempty"`
	DueDate       *int             `json:"dueDate,omitempty"`
}

func (l *Ledger) CreateAccount(ctx context.Context, ownerID string, in CreateAccountInput) (*core.Account, error) {
	now := l.now().UTC()
	acc := &core.Account{
		ID:            l.newID(),
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(in.Name),
		Type:          in.Type,
		CreditLimit:   in.CreditLimit,
		StatementDate: in.StatementDate,
		DueDate:       in.DueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Type.TracksBalance() {
		acc.Balance = core.Ptr(decimal.Zero)
		if in.OpeningBalance != nil {
			if err := core.ValidateAmount(*in.OpeningBalance); err != nil {
				return nil, fmt.Errorf("opening balance: %w", err)
			}
			acc.Balance = core.Ptr(*in.OpeningBalance)
		}
	} else if in.OpeningBalance != nil {
		return nil, core.Validationf("%s accounts do not track a balance", in.Type)
	}
	if err := acc.Validate(); err != nil {
		return nil, err
	}
	if err := l.store.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	l.logger.InfoContext(ctx, "Account created",
		log.FieldOwnerID, ownerID, log.FieldAccountID, acc.ID, "account_type", string(acc.Type))
	return acc, nil
}

func (l *Ledger) GetAccount(ctx context.Context, ownerID, id string) (*core.Account, error) {
	return l.store.GetAccount(ctx, ownerID, id)
}

func (l *Ledger) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	return l.store.ListAccounts(ctx, ownerID)
}

func (l *Ledger) UpdateAccount(ctx context.Context, ownerID, id string, p AccountPatch) (*core.Account, error) {
	var out *core.Account
	err := l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		acc, err := r.GetAccount(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			acc.Name = strings.TrimSpace(*p.Name)
		}
		if p.CreditLimit != nil {
			acc.CreditLimit = core.Ptr(*p.CreditLimit)
		}
		if p.StatementDate != nil {
			acc.StatementDate = core.Ptr(*p.StatementDate)
		}
		if p.DueDate != nil {
			acc.DueDate = core.Ptr(*p.DueDate)
		}
		acc.UpdatedAt = l.now().UTC()
		if err := acc.Validate(); err != nil {
			return err
		}
		if err := r.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		out = acc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return out, nil
}

// DeleteAccount removes an account that no transaction references, so that
// reconciliation can always resolve the accounts of stored rows.
func (l *Ledger) DeleteAccount(ctx context.Context, ownerID, id string) error {
	err := l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		if _, err := r.GetAccount(ctx, ownerID, id); err != nil {
			return err
		}
		n, err := r.CountTransactions(ctx, ownerID, store.TransactionFilter{AccountID: id})
		if err != nil {
			return err
		}
		if n > 0 {
			return core.Conflictf("account %s is referenced by %d transactions", id, n)
		}
		return r.DeleteAccount(ctx, ownerID, id)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	l.logger.InfoContext(ctx, "Account deleted", log.FieldOwnerID, ownerID, log.FieldAccountID, id)
	return nil
}
