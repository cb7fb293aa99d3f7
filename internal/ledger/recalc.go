package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// RecalculateBalances rebuilds every balance of the owner from the full
// transaction history. The rebuild runs in one store transaction: on failure no
// balance changes and the returned *core.RecalculationError reports how far the
// replay got.
func (l *Ledger) RecalculateBalances(ctx context.Context, ownerID string) (core.RecalculationResult, error) {
	var res core.RecalculationResult

	err := l.store.InTx(ctx, func(ctx context.Context, r store.Repository) error {
		res = core.RecalculationResult{}

		accounts, err := r.ListAccounts(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		known := make(map[string]bool, len(accounts))
		balances := make(map[string]decimal.Decimal)
		for _, a := range accounts {
			known[a.ID] = true
			if a.Type.TracksBalance() {
				balances[a.ID] = decimal.Zero
			}
		}

		rows, err := r.ListTransactions(ctx, ownerID, store.TransactionFilter{})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		for i := range rows {
			d, err := RowEffect(&rows[i])
			if err != nil {
				return err
			}
			for id, delta := range d {
				if !known[id] {
					return core.Referencef("transaction %s references unknown account %s", rows[i].ID, id)
				}
				if cur, ok := balances[id]; ok {
					balances[id] = cur.Add(delta)
				}
			}
			res.TransactionsProcessed++
		}

		ids := make([]string, 0, len(balances))
		for id := range balances {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if err := r.SetBalance(ctx, ownerID, id, balances[id]); err != nil {
				return fmt.Errorf("set balance of %s: %w", id, err)
			}
			res.AccountsUpdated++
		}
		return nil
	})
	if err != nil {
		rerr := &core.RecalculationError{
			AccountsUpdated:       res.AccountsUpdated,
			TransactionsProcessed: res.TransactionsProcessed,
			Err:                   err,
		}
		msg := "Recalculation failed"
		if errors.Is(err, core.ErrInvalidState) || errors.Is(err, core.ErrReference) {
			msg = "Recalculation aborted on inconsistent data"
		}
		l.logger.ErrorContext(ctx, msg,
			log.FieldOwnerID, ownerID, log.FieldOperation, log.OpRecalculate,
			"transactions_processed", res.TransactionsProcessed, log.FieldError, err)
		return core.RecalculationResult{}, rerr
	}

	l.logger.InfoContext(ctx, "Balances recalculated",
		log.FieldOwnerID, ownerID, log.FieldOperation, log.OpRecalculate,
		"accounts_updated", res.AccountsUpdated, "transactions_processed", res.TransactionsProcessed)
	return res, nil
}

// RequestRecalculation asks the event worker to rebuild the owner's balances
// asynchronously. Without an event publisher the rebuild runs inline.
func (l *Ledger) RequestRecalculation(ctx context.Context, ownerID string) (queued bool, err error) {
	if l.events == nil {
		_, err := l.RecalculateBalances(ctx, ownerID)
		return false, err
	}
	e := core.LedgerEvent{Kind: core.EventRecalculate, OwnerID: ownerID, OccurredAt: l.now().UTC()}
	if err := l.events.PublishLedgerEvent(ctx, e); err != nil {
		return false, fmt.Errorf("queue recalculation: %w", err)
	}
	return true, nil
}
