package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// decodeJSON reads exactly one JSON object into dst, rejecting unknown fields.
// Errors are classified as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.Validationf("request body is empty")
		case errors.As(err, &maxErr):
			return core.Validationf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return core.Validationf("invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return core.Validationf("request body must contain a single JSON object")
	}
	return nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339 and returns midnight of the UTC
// calendar day. The time of day of RFC 3339 input is dropped.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	t = t.UTC()
	return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// endOfDay is the last instant stores can hold on the day starting at d.
func endOfDay(d time.Time) time.Time {
	return d.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// ParseTransactionFilter builds a store filter from list query parameters:
// type, categoryId, accountId, transferGroupId, from and to. Both dates name
// whole days; to covers its day up to the last millisecond.
func ParseTransactionFilter(q url.Values) (store.TransactionFilter, error) {
	f := store.TransactionFilter{
		CategoryID:      sanitizeInput(q.Get("categoryId")),
		AccountID:       sanitizeInput(q.Get("accountId")),
		TransferGroupID: sanitizeInput(q.Get("transferGroupId")),
	}

	if v := sanitizeInput(q.Get("type")); v != "" {
		typ := core.TransactionType(strings.ToLower(v))
		switch typ {
		case core.TypeIncome, core.TypeExpense, core.TypeTransfer:
			f.Type = typ
		default:
			return f, core.Validationf("unknown transaction type %q", v)
		}
	}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := sanitizeInput(q.Get(p.name))
		if v == "" {
			continue
		}
		d, err := parseDate(v)
		if err != nil {
			return f, core.Validationf("invalid %s date: %v", p.name, err)
		}
		*p.dst = d
	}
	if !f.To.IsZero() {
		if !f.From.IsZero() && f.To.Before(f.From) {
			return f, core.Validationf("to date is before from date")
		}
		f.To = endOfDay(f.To)
	}
	return f, nil
}
