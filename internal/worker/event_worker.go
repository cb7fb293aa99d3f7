// Package worker consumes ledger events: it rebuilds balances on request and
// keeps the spreadsheet mirror in step with committed transactions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// Ledger is the slice of the ledger service the worker needs.
type Ledger interface {
	GetTransaction(ctx context.Context, ownerID, id string) (*core.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string, f store.TransactionFilter) ([]core.Transaction, error)
	ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	RecalculateBalances(ctx context.Context, ownerID string) (core.RecalculationResult, error)
}

type EventWorker struct {
	ledger Ledger
	mirror sheets.LedgerMirror
	logger *slog.Logger
}

// NewEventWorker builds a worker. mirror may be nil, in which case transaction
// events are acknowledged without mirroring.
func NewEventWorker(l Ledger, mirror sheets.LedgerMirror) *EventWorker {
	return &EventWorker{
		ledger: l,
		mirror: mirror,
		logger: slog.Default().With(log.FieldComponent, log.ComponentWorker),
	}
}

// Handle processes one ledger event. It matches amqp.Handler.
func (w *EventWorker) Handle(ctx context.Context, e core.LedgerEvent) error {
	start := time.Now()
	logger := w.logger.With(log.FieldEventKind, string(e.Kind), log.FieldOwnerID, e.OwnerID)

	var err error
	switch e.Kind {
	case core.EventRecalculate:
		err = w.recalculate(ctx, logger, e.OwnerID)
	case core.EventTransactionCreated, core.EventTransactionUpdated:
		err = w.mirrorCurrent(ctx, e)
	case core.EventTransactionDeleted:
		err = w.mirrorRemoved(ctx, e)
	default:
		logger.WarnContext(ctx, "Ignoring unknown event kind")
		return nil
	}
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Processed ledger event",
		"transactions", len(e.Transactions), log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (w *EventWorker) recalculate(ctx context.Context, logger *slog.Logger, ownerID string) error {
	res, err := w.ledger.RecalculateBalances(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("recalculate balances: %w", err)
	}
	logger.InfoContext(ctx, "Balances recalculated",
		"accounts_updated", res.AccountsUpdated, "transactions_processed", res.TransactionsProcessed)

	// A recalculation is the full repair path, so the mirror is resynced too.
	return w.Resync(ctx, ownerID)
}

// Resync upserts every transaction of the owner into the mirror.
func (w *EventWorker) Resync(ctx context.Context, ownerID string) error {
	if w.mirror == nil {
		return nil
	}
	rows, err := w.ledger.ListTransactions(ctx, ownerID, store.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	out, err := w.resolve(ctx, ownerID, rows)
	if err != nil {
		return err
	}
	if err := w.mirror.Upsert(ctx, out); err != nil {
		return fmt.Errorf("mirror upsert: %w", err)
	}
	return nil
}

// mirrorCurrent re-reads the rows so the mirror reflects the latest committed
// state even when events arrive out of order.
func (w *EventWorker) mirrorCurrent(ctx context.Context, e core.LedgerEvent) error {
	if w.mirror == nil || len(e.Transactions) == 0 {
		return nil
	}

	var current, gone []core.Transaction
	for _, t := range e.Transactions {
		tx, err := w.ledger.GetTransaction(ctx, e.OwnerID, t.ID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			gone = append(gone, t)
		case err != nil:
			return fmt.Errorf("get transaction %s: %w", t.ID, err)
		default:
			current = append(current, *tx)
		}
	}

	if len(current) > 0 {
		rows, err := w.resolve(ctx, e.OwnerID, current)
		if err != nil {
			return err
		}
		if err := w.mirror.Upsert(ctx, rows); err != nil {
			return fmt.Errorf("mirror upsert: %w", err)
		}
	}
	if len(gone) > 0 {
		if err := w.mirror.Remove(ctx, bareRows(e.OwnerID, gone)); err != nil {
			return fmt.Errorf("mirror remove: %w", err)
		}
	}
	return nil
}

func (w *EventWorker) mirrorRemoved(ctx context.Context, e core.LedgerEvent) error {
	if w.mirror == nil || len(e.Transactions) == 0 {
		return nil
	}
	if err := w.mirror.Remove(ctx, bareRows(e.OwnerID, e.Transactions)); err != nil {
		return fmt.Errorf("mirror remove: %w", err)
	}
	return nil
}

// resolve turns transactions into mirror rows with account and category names.
func (w *EventWorker) resolve(ctx context.Context, ownerID string, txs []core.Transaction) ([]sheets.Row, error) {
	accounts, err := w.ledger.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	categories, err := w.ledger.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	accountNames := make(map[string]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	rows := bareRows(ownerID, txs)
	for i, t := range txs {
		rows[i].Account = accountNames[core.Deref(t.AccountID)]
		if t.CategoryID != nil {
			rows[i].Category = categoryNames[*t.CategoryID]
		}
	}
	return rows, nil
}

func bareRows(ownerID string, txs []core.Transaction) []sheets.Row {
	rows := make([]sheets.Row, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, sheets.Row{
			TransactionID: t.ID,
			OwnerID:       ownerID,
			Date:          t.Date,
			Type:          t.Type,
			Leg:           t.Leg,
			Amount:        t.Amount,
			Description:   t.Description,
		})
	}
	return rows
}
