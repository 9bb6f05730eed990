package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ai-content-boost/internal/domain"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind string) {
	writeJSON(w, code, struct {
		Error string `json:"error"`
	}{Error: kind})
}

// writeDomainError maps use case failures onto the wire contract. Validation
// and quota rejections carry structured payloads; everything else is a bare
// error kind.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}{Error: "schema_invalid", Fields: verr.Fields})
		return
	}

	var qerr *domain.QuotaExceededError
	if errors.As(err, &qerr) {
		writeJSON(w, http.StatusPaymentRequired, struct {
			Error     string `json:"error"`
			Quota     int64  `json:"aej_quota"`
			Consumed  int64  `json:"aej_consumed"`
			Held      int64  `json:"aej_held"`
			Remaining int64  `json:"aej_remaining"`
			Needed    int64  `json:"aej_needed"`
		}{
			Error:     "quota_exceeded",
			Quota:     qerr.Quota,
			Consumed:  qerr.Consumed,
			Held:      qerr.Held,
			Remaining: qerr.Remaining(),
			Needed:    qerr.Requested,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job_not_found")
	case errors.Is(err, domain.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "tenant_not_found")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition")
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, "idempotency_conflict")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument")
	default:
		writeError(w, http.StatusInternalServerError, "internal")
	}
}
