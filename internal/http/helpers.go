package http

import (
	"net/http"
	"strings"
	"unicode"

	"fintrack/internal/log"
)

// HeaderOwnerID names the ledger owner of an /api request.
const HeaderOwnerID = "X-Owner-ID"

const maxOwnerIDLen = 128

type ownerHandler func(w http.ResponseWriter, r *http.Request, ownerID string)

// withOwner resolves the owner of the request and adds it to the request logger.
func (s *Server) withOwner(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := sanitizeInput(r.Header.Get(HeaderOwnerID))
		switch {
		case owner == "":
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderOwnerID + " header"})
			return
		case len(owner) > maxOwnerIDLen || strings.ContainsFunc(owner, unicode.IsSpace):
			writeValidation(w, r, "invalid %s header", HeaderOwnerID)
			return
		}

		logger := log.FromContext(r.Context()).With(log.FieldOwnerID, owner)
		next(w, r.WithContext(log.WithLogger(r.Context(), logger)), owner)
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
