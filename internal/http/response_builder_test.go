package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.Validationf("amount must be positive"), http.StatusBadRequest},
		{core.Referencef("account a1 does not exist"), http.StatusBadRequest},
		{core.NotFoundf("transaction t1"), http.StatusNotFound},
		{core.Conflictf("account %q already exists", "Checking"), http.StatusConflict},
		{core.InvalidStatef("transfer pair is broken"), http.StatusInternalServerError},
		{fmt.Errorf("create transaction: %w", core.Validationf("bad")), http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	rr := httptest.NewRecorder()
	writeError(rr, r, errors.New("sql: connection string with password"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Fatalf("internal error leaked: %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	writeError(rr, r, core.Validationf("amount must be positive"))
	if !strings.Contains(rr.Body.String(), `"error":"validation error: amount must be positive"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestNonNil(t *testing.T) {
	rr := httptest.NewRecorder()
	var none []core.Account
	writeJSON(rr, http.StatusOK, nonNil(none))
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
}
