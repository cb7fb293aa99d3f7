package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a classified ledger error to an HTTP status.
func statusFor(err error) int {
	switch core.Kind(err) {
	case core.ErrValidation, core.ErrReference:
		return http.StatusBadRequest
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// Headers are gone at this point; a failed write only means the client left.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with {"error": ...}. Server-side failures are logged and
// their details kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logMsg := "Request failed"
		if errors.Is(err, core.ErrInvalidState) {
			logMsg = "Ledger invariant violated"
		}
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), logMsg, err,
			log.ComponentHTTP, r.Method+" "+r.Pattern, log.NewFields())
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeValidation(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	writeError(w, r, core.Validationf(format, args...))
}
