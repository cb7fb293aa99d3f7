package core

import "time"

const (
	EventTransactionCreated EventKind = "transaction.created"
	EventTransactionUpdated EventKind = "transaction.updated"
	EventTransactionDeleted EventKind = "transaction.deleted"
	EventRecalculate        EventKind = "balances.recalculate"
)

type EventKind string

// LedgerEvent announces a committed ledger change. Transactions carries the rows
// as they were after the change; for deletions it carries the removed rows.
type LedgerEvent struct {
	Kind         EventKind     `json:"kind"`
	OwnerID      string        `json:"ownerId"`
	Transactions []Transaction `json:"transactions,omitempty"`
	OccurredAt   time.Time     `json:"occurredAt"`
}

// TransactionIDs returns the ids carried by the event.
func (e LedgerEvent) TransactionIDs() []string {
	ids := make([]string, 0, len(e.Transactions))
	for _, t := range e.Transactions {
		ids = append(ids, t.ID)
	}
	return ids
}
