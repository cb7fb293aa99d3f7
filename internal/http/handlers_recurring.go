package http

import (
	"net/http"

	"fintrack/internal/services"
)

type recurringRequest struct {
	services.CreateRecurringInput
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate,omitempty"`
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request, owner string) {
	list, err := s.recurring.List(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request, owner string) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.CreateRecurringInput
	if req.StartDate == "" {
		writeValidation(w, r, "startDate is required")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeValidation(w, r, "invalid startDate: %v", err)
		return
	}
	in.StartDate = start
	if in.EndDate, err = optionalDate(req.EndDate); err != nil {
		writeValidation(w, r, "invalid endDate: %v", err)
		return
	}
	in.Description = sanitizeInput(in.Description)

	rt, err := s.recurring.Create(r.Context(), owner, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rt)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request, owner string) {
	rt, err := s.recurring.Get(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request, owner string) {
	if err := s.recurring.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
