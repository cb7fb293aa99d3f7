package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// Deltas maps an account id to the balance change a transaction causes on it.
type Deltas map[string]decimal.Decimal

func (d Deltas) add(accountID string, amount decimal.Decimal) {
	d[accountID] = d[accountID].Add(amount)
}

// Merge adds every entry of o into d.
func (d Deltas) Merge(o Deltas) {
	for id, v := range o {
		d.add(id, v)
	}
}

// Negate returns the reversed effect.
func (d Deltas) Negate() Deltas {
	out := make(Deltas, len(d))
	for id, v := range d {
		out[id] = v.Neg()
	}
	return out
}

// Effect is the balance change of one economic transaction. For a transfer it
// covers both accounts and may be computed from either leg.
func Effect(t *core.Transaction) (Deltas, error) {
	switch t.Type {
	case core.TypeIncome, core.TypeExpense:
		if t.AccountID == nil {
			return nil, core.InvalidStatef("%s transaction %s has no account", t.Type, t.ID)
		}
		return Deltas{*t.AccountID: t.Amount}, nil
	case core.TypeTransfer:
		if t.FromAccountID == nil || t.ToAccountID == nil {
			return nil, core.InvalidStatef("transfer %s is missing an account", t.ID)
		}
		d := Deltas{}
		d.add(*t.FromAccountID, t.Amount.Abs().Neg())
		d.add(*t.ToAccountID, t.Amount.Abs())
		return d, nil
	default:
		return nil, core.InvalidStatef("transaction %s has unknown type %q", t.ID, t.Type)
	}
}

// RowEffect is the balance change of a single ledger row. Summed over both legs
// of a transfer it equals Effect of the transfer.
func RowEffect(t *core.Transaction) (Deltas, error) {
	if t.Type != core.TypeTransfer {
		return Effect(t)
	}
	if t.AccountID == nil {
		return nil, core.InvalidStatef("transfer leg %s has no account", t.ID)
	}
	switch t.Leg {
	case core.LegDebit:
		return Deltas{*t.AccountID: t.Amount.Abs().Neg()}, nil
	case core.LegCredit:
		return Deltas{*t.AccountID: t.Amount.Abs()}, nil
	default:
		return nil, core.InvalidStatef("transfer row %s has invalid leg %q", t.ID, t.Leg)
	}
}

// Engine keeps account balances in step with the ledger.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With(log.FieldComponent, log.ComponentEngine)}
}

// Apply adds the effect of t to the balances.
func (e *Engine) Apply(ctx context.Context, r store.Repository, ownerID string, t *core.Transaction) error {
	return e.Reconcile(ctx, r, ownerID, nil, t)
}

// Reverse removes the effect of t from the balances.
func (e *Engine) Reverse(ctx context.Context, r store.Repository, ownerID string, t *core.Transaction) error {
	return e.Reconcile(ctx, r, ownerID, t, nil)
}

// Reconcile moves the balances from the state implied by prev to the state
// implied by next; either may be nil. Both effects are computed and merged before
// any balance is touched, so r should be transactional for the write to be atomic.
func (e *Engine) Reconcile(ctx context.Context, r store.Repository, ownerID string, prev, next *core.Transaction) error {
	net := Deltas{}
	if prev != nil {
		d, err := e.effect(ctx, ownerID, prev)
		if err != nil {
			return err
		}
		net.Merge(d.Negate())
	}
	if next != nil {
		d, err := e.effect(ctx, ownerID, next)
		if err != nil {
			return err
		}
		net.Merge(d)
	}
	return e.applyDeltas(ctx, r, ownerID, net)
}

func (e *Engine) effect(ctx context.Context, ownerID string, t *core.Transaction) (Deltas, error) {
	d, err := Effect(t)
	if err != nil && errors.Is(err, core.ErrInvalidState) {
		e.logger.ErrorContext(ctx, "Refusing to reconcile inconsistent transaction",
			log.NewFields().WithTransaction(ownerID, t.ID, string(t.Type)).WithError(err).ToSlice()...)
	}
	return d, err
}

func (e *Engine) applyDeltas(ctx context.Context, r store.Repository, ownerID string, net Deltas) error {
	// Deterministic order keeps lock acquisition stable across concurrent writers
	ids := make([]string, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		acc, err := r.GetAccount(ctx, ownerID, id)
		if errors.Is(err, core.ErrNotFound) {
			return core.Referencef("account %s does not exist", id)
		}
		if err != nil {
			return fmt.Errorf("load account %s: %w", id, err)
		}
		delta := net[id]
		if !acc.Type.TracksBalance() || delta.IsZero() {
			continue
		}
		if err := r.IncrementBalance(ctx, ownerID, id, delta); err != nil {
			return fmt.Errorf("increment balance of %s: %w", id, err)
		}
		e.logger.DebugContext(ctx, "Balance adjusted",
			log.FieldOwnerID, ownerID, log.FieldAccountID, id, log.FieldAmount, delta.StringFixed(core.AmountScale))
	}
	return nil
}
