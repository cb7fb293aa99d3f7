package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// TransactionCreator is the ledger write used to materialise templates.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, ownerID string, in ledger.CreateTransactionInput) (*core.Transaction, error)
}

// RecurringProcessor turns due recurring templates into ledger transactions.
type RecurringProcessor struct {
	store  store.RecurringRepository
	ledger TransactionCreator
	logger *slog.Logger
}

func NewRecurringProcessor(r store.RecurringRepository, l TransactionCreator) *RecurringProcessor {
	return &RecurringProcessor{
		store:  r,
		ledger: l,
		logger: slog.Default().With(log.FieldComponent, log.ComponentRecurring),
	}
}

// ProcessDue creates one transaction for every active template that is due at
// now and returns how many were created. A failing template is logged and
// skipped so the others still run.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	now = now.UTC()

	active, err := p.store.ListActiveRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list active recurring transactions: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing recurring transactions",
		"total_active", len(active), "processing_date", now.Format(time.DateOnly))

	processed := 0
	for _, rt := range active {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		logger := p.logger.With(log.FieldOwnerID, rt.OwnerID, "recurring_id", rt.ID)

		checker, err := GetDuenessChecker(rt.Every)
		if err != nil {
			logger.ErrorContext(ctx, "Skipping recurring transaction", log.FieldError, err)
			continue
		}
		if !checker.IsDue(core.Deref(rt.LastExecution), now, rt.StartDate) {
			continue
		}

		tx, err := p.ledger.CreateTransaction(ctx, rt.OwnerID, transactionFor(rt, now))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to create transaction from recurring template",
				"description", rt.Description, log.FieldError, err)
			continue
		}

		if err := p.store.MarkRecurringExecuted(ctx, rt.OwnerID, rt.ID, now); err != nil {
			// The transaction exists; the next run may create a duplicate.
			logger.ErrorContext(ctx, "Failed to record last execution",
				log.FieldTransactionID, tx.ID, log.FieldError, err)
		}

		processed++
		logger.InfoContext(ctx, "Created transaction from recurring template",
			log.FieldTransactionID, tx.ID, log.FieldAmount, tx.Amount.String(), "every", string(rt.Every))
	}

	p.logger.InfoContext(ctx, "Recurring processing complete",
		"processed", processed, "total_checked", len(active))
	return processed, nil
}

// Run processes due templates every interval until ctx is done.
func (p *RecurringProcessor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessDue(ctx, time.Now()); err != nil && ctx.Err() == nil {
			p.logger.ErrorContext(ctx, "Recurring processing failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func transactionFor(rt core.RecurringTransaction, now time.Time) ledger.CreateTransactionInput {
	amount := rt.Amount
	if rt.Type == core.TypeExpense {
		amount = amount.Neg()
	}
	return ledger.CreateTransactionInput{
		Type:        rt.Type,
		Amount:      amount,
		Date:        now,
		Description: rt.Description,
		CategoryID:  rt.CategoryID,
		AccountID:   core.Ptr(rt.AccountID),
		RecurringID: core.Ptr(rt.ID),
	}
}
