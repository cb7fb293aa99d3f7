// Package ledger implements the write protocol of the personal-finance ledger:
// validation, balance reconciliation and persistence of transactions, plus the
// account, category and budget operations that depend on them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// EventPublisher receives committed ledger changes. Publishing is best effort.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, e core.LedgerEvent) error
}

type Ledger struct {
	store  store.Store
	engine *Engine
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Ledger)

// WithEvents publishes an event after every committed write.
func WithEvents(p EventPublisher) Option {
	return func(l *Ledger) { l.events = p }
}

// WithClock overrides the wall clock used for timestamps and budget windows.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  s,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.engine = NewEngine(l.logger)
	l.logger = l.logger.With(log.FieldComponent, log.ComponentLedger)
	return l
}

// Store exposes the underlying store for read-only collaborators.
func (l *Ledger) Store() store.Store { return l.store }

// EventsEnabled reports whether committed writes are published to a worker.
func (l *Ledger) EventsEnabled() bool { return l.events != nil }

// CreateTransactionInput is the caller-supplied shape of a new transaction.
// Amount signs are normalized per type, so either sign is accepted.
type CreateTransactionInput struct {
	Type          core.TransactionType `json:"type"`
	Amount        decimal.Decimal      `json:"amount"`
	Date          time.Time            `json:"date"`
	Description   string               `json:"description"`
	CategoryID    *string              `json:"categoryId,omitempty"`
	AccountID     *string              `json:"accountId,omitempty"`
	FromAccountID *string              `json:"fromAccountId,omitempty"`
	ToAccountID   *string              `json:"toAccountId,omitempty"`
	RecurringID   *string              `json:"-"`
}

func (in CreateTransactionInput) fields() core.AccountFields {
	return core.AccountFields{
		AccountID:     blankToNil(in.AccountID),
		FromAccountID: blankToNil(in.FromAccountID),
		ToAccountID:   blankToNil(in.ToAccountID),
	}
}

// TransactionPatch holds the fields of a partial update. Nil fields keep their
// stored value. An empty CategoryID clears the category.
type TransactionPatch struct {
	Type          *core.TransactionType `json:"type,omitempty"`
	Amount        *decimal.Decimal      `json:"amount,omitempty"`
	Date          *time.Time            `json:"date,omitempty"`
	Description   *string               `json:"description,omitempty"`
	CategoryID    *string               `json:"categoryId,omitempty"`
	AccountID     *string               `json:"accountId,omitempty"`
	FromAccountID *string               `json:"fromAccountId,omitempty"`
	ToAccountID   *string               `json:"toAccountId,omitempty"`
}

func (p TransactionPatch) touchesAccounts() bool {
	return p.AccountID != nil || p.FromAccountID != nil || p.ToAccountID != nil
}

func blankToNil(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return core.Ptr(strings.TrimSpace(*p))
}

// normalizeAmount applies the sign convention of the type: income and credit
// legs positive, expense and debit legs negative.
func normalizeAmount(t core.TransactionType, leg core.Leg, amount decimal.Decimal) decimal.Decimal {
	switch {
	case t == core.TypeExpense, t == core.TypeTransfer && leg == core.LegDebit:
		return amount.Abs().Neg()
	default:
		return amount.Abs()
	}
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return core.Validationf("%s: amount cannot be zero", core.ErrInvalidAmount)
	}
	return core.ValidateAmount(amount)
}

func transferDescriptions(desc string, from, to *core.Account) (debit, credit string) {
	if desc = strings.TrimSpace(desc); desc != "" {
		return desc, desc
	}
	return "Transfer to " + to.Name, "Transfer from " + from.Name
}

// CreateTransaction validates input, reconciles balances and persists the row in
// one store transaction. For a transfer the debit leg is returned; the credit leg
// shares its TransferGroupID.
func (l *Ledger) CreateTransaction(ctx context.Context, ownerID string, in CreateTransactionInput) (*core.Transaction, error) {
	if in.Type == core.TypeTransfer {
		debit, _, err := l.CreateTransfer(ctx, ownerID, in)
		return debit, err
	}

	fields := in.fields()
	if err := core.ValidateFields(in.Type, fields); err != nil {
		return nil, err
	}
	if err := l.validateCommon(in.Amount, in.Date, in.Description); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	tx := &core.Transaction{
		ID:          l.newID(),
		OwnerID:     ownerID,
		Type:        in.Type,
		Amount:      normalizeAmount(in.Type, core.LegNone, in.Amount),
		Date:        core.NormalizeDate(in.Date),
		Description: strings.TrimSpace(in.Description),
		AccountID:   fields.AccountID,
		RecurringID: in.RecurringID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		if err := l.resolveCategory(ctx, r, ownerID, tx, blankToNil(in.CategoryID)); err != nil {
			return err
		}
		if err := tx.Validate(); err != nil {
			return err
		}
		if err := l.engine.Apply(ctx, r, ownerID, tx); err != nil {
			return err
		}
		return r.InsertTransaction(ctx, tx)
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	l.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().WithTransaction(ownerID, tx.ID, string(tx.Type)).WithOperation(log.OpCreate).ToSlice()...)
	l.publish(ctx, core.EventTransactionCreated, ownerID, *tx)
	return tx, nil
}

// CreateTransfer records a transfer as a debit leg on the source account and a
// credit leg on the destination, reconciling balances once for the pair.
func (l *Ledger) CreateTransfer(ctx context.Context, ownerID string, in CreateTransactionInput) (debit, credit *core.Transaction, err error) {
	fields := in.fields()
	if err := core.ValidateFields(core.TypeTransfer, fields); err != nil {
		return nil, nil, err
	}
	if err := l.validateCommon(in.Amount, in.Date, in.Description); err != nil {
		return nil, nil, err
	}

	now := l.now().UTC()
	group := l.newID()
	err = l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		from, err := l.referencedAccount(ctx, r, ownerID, *fields.FromAccountID)
		if err != nil {
			return err
		}
		to, err := l.referencedAccount(ctx, r, ownerID, *fields.ToAccountID)
		if err != nil {
			return err
		}
		cat, err := ensureReservedCategory(ctx, r, ownerID, core.CategoryTransfer, now, l.newID)
		if err != nil {
			return err
		}

		debitDesc, creditDesc := transferDescriptions(in.Description, from, to)
		debit, credit = l.transferLegs(ownerID, group, in.Amount, in.Date, fields, cat.ID, now)
		debit.Description, credit.Description = debitDesc, creditDesc
		debit.RecurringID, credit.RecurringID = in.RecurringID, in.RecurringID

		for _, leg := range []*core.Transaction{debit, credit} {
			if err := leg.Validate(); err != nil {
				return err
			}
		}
		// One economic transfer, reconciled once
		if err := l.engine.Apply(ctx, r, ownerID, debit); err != nil {
			return err
		}
		if err := r.InsertTransaction(ctx, debit); err != nil {
			return err
		}
		return r.InsertTransaction(ctx, credit)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create transfer: %w", err)
	}

	l.logger.InfoContext(ctx, "Transfer created",
		log.FieldOwnerID, ownerID, log.FieldTransferGroup, group, log.FieldOperation, log.OpCreate)
	l.publish(ctx, core.EventTransactionCreated, ownerID, *debit, *credit)
	return debit, credit, nil
}

// transferLegs builds the debit and credit rows of a transfer group.
func (l *Ledger) transferLegs(ownerID, group string, amount decimal.Decimal, date time.Time, f core.AccountFields, categoryID string, now time.Time) (debit, credit *core.Transaction) {
	mk := func(leg core.Leg, account *string) *core.Transaction {
		return &core.Transaction{
			ID:              l.newID(),
			OwnerID:         ownerID,
			Type:            core.TypeTransfer,
			Amount:          normalizeAmount(core.TypeTransfer, leg, amount),
			Date:            core.NormalizeDate(date),
			CategoryID:      core.Ptr(categoryID),
			AccountID:       core.Ptr(*account),
			FromAccountID:   core.Ptr(*f.FromAccountID),
			ToAccountID:     core.Ptr(*f.ToAccountID),
			TransferGroupID: core.Ptr(group),
			Leg:             leg,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}
	return mk(core.LegDebit, f.FromAccountID), mk(core.LegCredit, f.ToAccountID)
}

func (l *Ledger) validateCommon(amount decimal.Decimal, date time.Time, desc string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if date.IsZero() {
		return core.Validationf("date is required")
	}
	return core.ValidateDescription(strings.TrimSpace(desc))
}

func (l *Ledger) referencedAccount(ctx context.Context, r store.Repository, ownerID, id string) (*core.Account, error) {
	acc, err := r.GetAccount(ctx, ownerID, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.Referencef("account %s does not exist", id)
	}
	return acc, err
}

// resolveCategory sets the category of an income or expense row: income always
// gets the reserved Income category, expense keeps the requested one if it exists.
func (l *Ledger) resolveCategory(ctx context.Context, r store.Repository, ownerID string, t *core.Transaction, requested *string) error {
	switch t.Type {
	case core.TypeIncome:
		cat, err := ensureReservedCategory(ctx, r, ownerID, core.CategoryIncome, l.now().UTC(), l.newID)
		if err != nil {
			return err
		}
		t.CategoryID = core.Ptr(cat.ID)
	case core.TypeExpense:
		t.CategoryID = nil
		if requested == nil {
			return nil
		}
		if _, err := r.GetCategory(ctx, ownerID, *requested); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.Referencef("category %s does not exist", *requested)
			}
			return err
		}
		t.CategoryID = core.Ptr(*requested)
	}
	return nil
}

// GetTransaction returns one row of the owner.
func (l *Ledger) GetTransaction(ctx context.Context, ownerID, id string) (*core.Transaction, error) {
	return l.store.GetTransaction(ctx, ownerID, id)
}

// ListTransactions returns the owner's rows in replay order.
func (l *Ledger) ListTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) ([]core.Transaction, error) {
	return l.store.ListTransactions(ctx, ownerID, f)
}

// TransferLegs returns the debit and credit rows of a transfer group.
func (l *Ledger) TransferLegs(ctx context.Context, ownerID, groupID string) (debit, credit *core.Transaction, err error) {
	return l.transferPair(ctx, l.store, ownerID, groupID)
}

// transferPair loads a group and checks that it is exactly one debit and one credit.
func (l *Ledger) transferPair(ctx context.Context, r store.Repository, ownerID, groupID string) (debit, credit *core.Transaction, err error) {
	rows, err := r.ListTransactions(ctx, ownerID, store.TransactionFilter{TransferGroupID: groupID})
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, core.NotFoundf("transfer %s", groupID)
	}
	for i := range rows {
		switch rows[i].Leg {
		case core.LegDebit:
			if debit == nil {
				debit = &rows[i]
				continue
			}
		case core.LegCredit:
			if credit == nil {
				credit = &rows[i]
				continue
			}
		}
		debit, credit = nil, nil
		break
	}
	if len(rows) != 2 || debit == nil || credit == nil {
		err := core.InvalidStatef("transfer group %s has %d rows instead of a debit/credit pair", groupID, len(rows))
		l.logger.ErrorContext(ctx, "Broken transfer pair",
			log.FieldOwnerID, ownerID, log.FieldTransferGroup, groupID, log.FieldError, err)
		return nil, nil, err
	}
	return debit, credit, nil
}

// UpdateTransaction applies patch to the stored row. Transfer pairs are updated
// as a unit: editing either leg rewrites both, changing a transfer to another
// type drops the sibling leg and changing a row into a transfer adds one.
func (l *Ledger) UpdateTransaction(ctx context.Context, ownerID, id string, patch TransactionPatch) (*core.Transaction, error) {
	var (
		result  *core.Transaction
		changed []core.Transaction
		removed []core.Transaction
	)
	err := l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		changed, removed = nil, nil

		old, err := r.GetTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}
		var sibling *core.Transaction
		if old.Type == core.TypeTransfer {
			debit, credit, err := l.transferPair(ctx, r, ownerID, core.Deref(old.TransferGroupID))
			if err != nil {
				return err
			}
			sibling = credit
			if old.Leg == core.LegCredit {
				sibling = debit
			}
		}

		next, err := l.patched(old, patch)
		if err != nil {
			return err
		}
		now := l.now().UTC()
		next.UpdatedAt = now

		switch {
		case next.Type == core.TypeTransfer:
			legs, dropped, err := l.updateIntoTransfer(ctx, r, ownerID, old, sibling, next, patch, now)
			if err != nil {
				return err
			}
			changed, removed = legs, dropped
			for i := range legs {
				if legs[i].ID == id {
					result = &legs[i]
				}
			}
			return nil
		default:
			if err := l.resolveUpdatedCategory(ctx, r, ownerID, old, next, patch); err != nil {
				return err
			}
			next.TransferGroupID, next.Leg, next.FromAccountID, next.ToAccountID = nil, core.LegNone, nil, nil
			if err := next.Validate(); err != nil {
				return err
			}
			if err := l.engine.Reconcile(ctx, r, ownerID, old, next); err != nil {
				return err
			}
			if err := r.UpdateTransaction(ctx, next); err != nil {
				return err
			}
			if sibling != nil {
				if err := r.DeleteTransaction(ctx, ownerID, sibling.ID); err != nil {
					return err
				}
				removed = append(removed, *sibling)
			}
			changed = []core.Transaction{*next}
			result = next
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	l.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().WithTransaction(ownerID, id, string(result.Type)).WithOperation(log.OpUpdate).ToSlice()...)
	l.publish(ctx, core.EventTransactionUpdated, ownerID, changed...)
	if len(removed) > 0 {
		l.publish(ctx, core.EventTransactionDeleted, ownerID, removed...)
	}
	return result, nil
}

// patched builds the next state of old under patch. Account fields come from the
// stored row unless the patch names any of them; when the type changes and the
// patch names none, the stored combination must still be valid for the new type.
func (l *Ledger) patched(old *core.Transaction, p TransactionPatch) (*core.Transaction, error) {
	next := *old

	if p.Type != nil {
		if !p.Type.IsValid() {
			return nil, core.Validationf("invalid transaction type %q", *p.Type)
		}
		next.Type = *p.Type
	}
	typeChanged := next.Type != old.Type

	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			return nil, err
		}
		next.Amount = *p.Amount
	}
	if p.Date != nil {
		if p.Date.IsZero() {
			return nil, core.Validationf("date is required")
		}
		next.Date = core.NormalizeDate(*p.Date)
	}
	if p.Description != nil {
		next.Description = strings.TrimSpace(*p.Description)
		if err := core.ValidateDescription(next.Description); err != nil {
			return nil, err
		}
	}

	fields := inputFields(old)
	if typeChanged && p.touchesAccounts() {
		fields = core.AccountFields{}
	}
	if p.AccountID != nil {
		fields.AccountID = blankToNil(p.AccountID)
	}
	if p.FromAccountID != nil {
		fields.FromAccountID = blankToNil(p.FromAccountID)
	}
	if p.ToAccountID != nil {
		fields.ToAccountID = blankToNil(p.ToAccountID)
	}
	if err := core.ValidateFields(next.Type, fields); err != nil {
		return nil, err
	}
	next.AccountID, next.FromAccountID, next.ToAccountID = fields.AccountID, fields.FromAccountID, fields.ToAccountID
	next.Amount = normalizeAmount(next.Type, core.LegNone, next.Amount)
	return &next, nil
}

// inputFields returns the caller-level account fields of a stored row. On a
// transfer leg AccountID is derived from the leg and not part of the input.
func inputFields(t *core.Transaction) core.AccountFields {
	if t.Type == core.TypeTransfer {
		return core.AccountFields{FromAccountID: t.FromAccountID, ToAccountID: t.ToAccountID}
	}
	return core.AccountFields{AccountID: t.AccountID}
}

func (l *Ledger) resolveUpdatedCategory(ctx context.Context, r store.Repository, ownerID string, old, next *core.Transaction, p TransactionPatch) error {
	requested := next.CategoryID
	if p.CategoryID != nil {
		requested = blankToNil(p.CategoryID)
	} else if next.Type != old.Type && old.Type != core.TypeExpense {
		// The reserved category of the old type does not carry over
		requested = nil
	}
	return l.resolveCategory(ctx, r, ownerID, next, requested)
}

// updateIntoTransfer handles every update whose result is a transfer. It returns
// the persisted legs and any row that was deleted.
func (l *Ledger) updateIntoTransfer(ctx context.Context, r store.Repository, ownerID string, old, sibling, next *core.Transaction, p TransactionPatch, now time.Time) ([]core.Transaction, []core.Transaction, error) {
	from, err := l.referencedAccount(ctx, r, ownerID, *next.FromAccountID)
	if err != nil {
		return nil, nil, err
	}
	to, err := l.referencedAccount(ctx, r, ownerID, *next.ToAccountID)
	if err != nil {
		return nil, nil, err
	}
	cat, err := ensureReservedCategory(ctx, r, ownerID, core.CategoryTransfer, now, l.newID)
	if err != nil {
		return nil, nil, err
	}

	fields := core.AccountFields{FromAccountID: next.FromAccountID, ToAccountID: next.ToAccountID}
	group := core.Deref(old.TransferGroupID)
	if group == "" {
		group = l.newID()
	}
	debit, credit := l.transferLegs(ownerID, group, next.Amount, next.Date, fields, cat.ID, now)

	// Keep row identities: the patched row keeps its id and leg; a former
	// income/expense row becomes the debit leg.
	var oldDebit, oldCredit *core.Transaction
	switch {
	case old.Type != core.TypeTransfer:
		oldDebit = old
	case old.Leg == core.LegDebit:
		oldDebit, oldCredit = old, sibling
	default:
		oldDebit, oldCredit = sibling, old
	}
	debit.ID, debit.CreatedAt = oldDebit.ID, oldDebit.CreatedAt
	if oldCredit != nil {
		credit.ID, credit.CreatedAt = oldCredit.ID, oldCredit.CreatedAt
	}
	debit.RecurringID = oldDebit.RecurringID
	credit.RecurringID = oldDebit.RecurringID

	defDebit, defCredit := transferDescriptions("", from, to)
	switch {
	case p.Description != nil:
		debit.Description, credit.Description = next.Description, next.Description
	case old.Type != core.TypeTransfer:
		if next.Description != "" {
			debit.Description, credit.Description = next.Description, next.Description
		} else {
			debit.Description, credit.Description = defDebit, defCredit
		}
	default:
		debit.Description = l.carryDescription(ctx, r, ownerID, oldDebit, defDebit)
		credit.Description = l.carryDescription(ctx, r, ownerID, oldCredit, defCredit)
	}

	for _, leg := range []*core.Transaction{debit, credit} {
		if err := leg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	if err := l.engine.Reconcile(ctx, r, ownerID, old, debit); err != nil {
		return nil, nil, err
	}
	if err := r.UpdateTransaction(ctx, debit); err != nil {
		return nil, nil, err
	}
	if oldCredit != nil {
		err = r.UpdateTransaction(ctx, credit)
	} else {
		err = r.InsertTransaction(ctx, credit)
	}
	if err != nil {
		return nil, nil, err
	}
	return []core.Transaction{*debit, *credit}, nil, nil
}

// carryDescription keeps a leg's description unless it is still the generated
// default, which is regenerated for the new accounts.
func (l *Ledger) carryDescription(ctx context.Context, r store.Repository, ownerID string, leg *core.Transaction, def string) string {
	from, errFrom := r.GetAccount(ctx, ownerID, core.Deref(leg.FromAccountID))
	to, errTo := r.GetAccount(ctx, ownerID, core.Deref(leg.ToAccountID))
	if errFrom == nil && errTo == nil {
		oldDebit, oldCredit := transferDescriptions("", from, to)
		if leg.Description == oldDebit || leg.Description == oldCredit {
			return def
		}
	}
	return leg.Description
}

// DeleteTransaction reverses the stored effect and removes the row. Deleting
// either leg of a transfer removes the whole pair.
func (l *Ledger) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	var removed []core.Transaction
	err := l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		removed = nil

		old, err := r.GetTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}
		rows := []core.Transaction{*old}
		if old.Type == core.TypeTransfer {
			debit, credit, err := l.transferPair(ctx, r, ownerID, core.Deref(old.TransferGroupID))
			if err != nil {
				return err
			}
			rows = []core.Transaction{*debit, *credit}
		}

		if err := l.engine.Reverse(ctx, r, ownerID, old); err != nil {
			return err
		}
		for _, row := range rows {
			if err := r.DeleteTransaction(ctx, ownerID, row.ID); err != nil {
				return err
			}
		}
		removed = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	l.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOwnerID, ownerID, log.FieldTransactionID, id, log.FieldOperation, log.OpDelete, "rows", len(removed))
	l.publish(ctx, core.EventTransactionDeleted, ownerID, removed...)
	return nil
}

func (l *Ledger) publish(ctx context.Context, kind core.EventKind, ownerID string, rows ...core.Transaction) {
	if l.events == nil {
		return
	}
	e := core.LedgerEvent{Kind: kind, OwnerID: ownerID, Transactions: rows, OccurredAt: l.now().UTC()}
	if err := l.events.PublishLedgerEvent(ctx, e); err != nil {
		// The write is committed; subscribers catch up on the next event
		l.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventKind, string(kind), log.FieldOwnerID, ownerID, log.FieldError, err)
	}
}
