// Package memory is an in-process ledger mirror for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"fintrack/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows map[string]sheets.Row
}

var _ sheets.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[string]sheets.Row{}}
}

func (m *Mirror) Upsert(_ context.Context, rows []sheets.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.rows[r.TransactionID] = r
	}
	return nil
}

func (m *Mirror) Remove(_ context.Context, rows []sheets.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		delete(m.rows, r.TransactionID)
	}
	return nil
}

// Rows returns the mirrored rows ordered by date, then id.
func (m *Mirror) Rows() []sheets.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sheets.Row, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out
}
