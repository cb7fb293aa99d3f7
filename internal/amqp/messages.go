package amqp

import (
	"encoding/json"
	"fmt"

	"fintrack/internal/core"
)

// EncodeEvent converts a ledger event to its JSON message body.
func EncodeEvent(e core.LedgerEvent) ([]byte, error) {
	if err := checkEvent(e); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// DecodeEvent parses a message body produced by EncodeEvent.
func DecodeEvent(data []byte) (core.LedgerEvent, error) {
	var e core.LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return core.LedgerEvent{}, fmt.Errorf("decode ledger event: %w", err)
	}
	if err := checkEvent(e); err != nil {
		return core.LedgerEvent{}, err
	}
	return e, nil
}

func checkEvent(e core.LedgerEvent) error {
	switch e.Kind {
	case core.EventTransactionCreated, core.EventTransactionUpdated, core.EventTransactionDeleted, core.EventRecalculate:
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.OwnerID == "" {
		return fmt.Errorf("event %s has no owner", e.Kind)
	}
	return nil
}
