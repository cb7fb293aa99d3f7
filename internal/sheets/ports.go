// Package sheets defines the spreadsheet mirror of the ledger. The mirror is a
// read-only copy for humans; the store stays the source of truth.
package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Row is one mirrored transaction row with names resolved.
type Row struct {
	TransactionID string
	OwnerID       string
	Date          time.Time
	Type          core.TransactionType
	Leg           core.Leg
	Amount        decimal.Decimal
	Account       string
	Category      string
	Description   string
}

// Ports for outbound adapters.
type (
	// LedgerMirror keeps a spreadsheet copy of ledger rows keyed by transaction id.
	LedgerMirror interface {
		// Upsert writes rows, replacing any existing row with the same id.
		Upsert(ctx context.Context, rows []Row) error
		// Remove deletes the rows with the given ids; unknown ids are ignored.
		Remove(ctx context.Context, rows []Row) error
	}
)
