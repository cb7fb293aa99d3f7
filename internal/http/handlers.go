package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"fintrack/internal/charts"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every readiness check with a shared deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]string, len(s.checks)+1)

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err)
			checks[name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	if s.ledger == nil {
		checks["ledger"] = "failed: not configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, owner string) {
	accounts, err := s.ledger.ListAccounts(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(accounts))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, owner string) {
	var in ledger.CreateAccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.ledger.CreateAccount(r.Context(), owner, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request, owner string) {
	acc, err := s.ledger.GetAccount(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request, owner string) {
	var p ledger.AccountPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.ledger.UpdateAccount(r.Context(), owner, r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, owner string) {
	if err := s.ledger.DeleteAccount(r.Context(), owner, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecalculate rebuilds balances inline, or queues the rebuild for the
// event worker when events are enabled and ?sync=true is not given.
func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request, owner string) {
	if s.ledger.EventsEnabled() && r.URL.Query().Get("sync") != "true" {
		queued, err := s.ledger.RequestRecalculation(r.Context(), owner)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if queued {
			writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
			return
		}
	}

	res, err := s.ledger.RecalculateBalances(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, owner string) {
	cats, err := s.ledger.ListCategories(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cats))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, owner string) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.ledger.CreateCategory(r.Context(), owner, sanitizeInput(in.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, owner string) {
	detached, err := s.ledger.DeleteCategory(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"detachedTransactions": detached})
}

// Budget requests accept dates as YYYY-MM-DD as well as RFC 3339.
type budgetRequest struct {
	ledger.CreateBudgetInput
	StartDate *string `json:"startDate,omitempty"`
	EndDate   *string `json:"endDate,omitempty"`
}

type budgetPatchRequest struct {
	ledger.BudgetPatch
	StartDate *string `json:"startDate,omitempty"`
	EndDate   *string `json:"endDate,omitempty"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, owner string) {
	budgets, err := s.ledger.ListBudgets(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(budgets))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, owner string) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.CreateBudgetInput
	var err error
	if in.StartDate, err = optionalDate(req.StartDate); err != nil {
		writeValidation(w, r, "invalid startDate: %v", err)
		return
	}
	if in.EndDate, err = optionalDate(req.EndDate); err != nil {
		writeValidation(w, r, "invalid endDate: %v", err)
		return
	}
	b, err := s.ledger.CreateBudget(r.Context(), owner, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, owner string) {
	b, err := s.ledger.GetBudget(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, owner string) {
	var req budgetPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := req.BudgetPatch
	var err error
	if p.StartDate, err = optionalDate(req.StartDate); err != nil {
		writeValidation(w, r, "invalid startDate: %v", err)
		return
	}
	if p.EndDate, err = optionalDate(req.EndDate); err != nil {
		writeValidation(w, r, "invalid endDate: %v", err)
		return
	}
	b, err := s.ledger.UpdateBudget(r.Context(), owner, r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, owner string) {
	if err := s.ledger.DeleteBudget(r.Context(), owner, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request, owner string) {
	progress, err := s.ledger.ComputeBudgetProgress(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(progress))
}

// handleBudgetChart renders budget progress as a PNG; 204 when no budget is active.
func (s *Server) handleBudgetChart(w http.ResponseWriter, r *http.Request, owner string) {
	progress, err := s.ledger.ComputeBudgetProgress(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	png, err := charts.BudgetChart(progress)
	if errors.Is(err, charts.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request, owner string) {
	if s.insights == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "insights are not configured"})
		return
	}
	in, err := s.insights.Insight(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
