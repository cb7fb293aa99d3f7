package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// transactionRequest accepts dates as YYYY-MM-DD as well as RFC 3339.
type transactionRequest struct {
	ledger.CreateTransactionInput
	Date string `json:"date"`
}

type transactionPatchRequest struct {
	ledger.TransactionPatch
	Date *string `json:"date,omitempty"`
}

// transferResponse is returned when a transfer is created: both legs, debit first.
type transferResponse struct {
	Debit  *core.Transaction `json:"debit"`
	Credit *core.Transaction `json:"credit"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, owner string) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), owner, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.CreateTransactionInput
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			writeValidation(w, r, "invalid date: %v", err)
			return
		}
		in.Date = d
	}
	in.Description = sanitizeInput(in.Description)

	if in.Type == core.TypeTransfer {
		debit, credit, err := s.ledger.CreateTransfer(r.Context(), owner, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, transferResponse{Debit: debit, Credit: credit})
		return
	}

	tx, err := s.ledger.CreateTransaction(r.Context(), owner, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Transaction created over HTTP",
		log.FieldTransactionID, tx.ID, log.FieldAmount, tx.Amount.String())
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	tx, err := s.ledger.GetTransaction(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	var req transactionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := req.TransactionPatch
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			writeValidation(w, r, "invalid date: %v", err)
			return
		}
		p.Date = &d
	}
	if p.Description != nil {
		p.Description = core.Ptr(sanitizeInput(*p.Description))
	}

	tx, err := s.ledger.UpdateTransaction(r.Context(), owner, r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleDeleteTransaction removes the row; deleting a transfer leg removes its pair.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	if err := s.ledger.DeleteTransaction(r.Context(), owner, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// optionalDate parses a nullable date field.
func optionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
