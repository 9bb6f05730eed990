package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ai-content-boost/internal/domain/model"
)

// Admin handlers act on behalf of a tenant, so the tenant id rides along as a
// query parameter instead of coming from a signature.

// handleAdminToken exchanges the configured admin key for a short-lived
// bearer token. This is the only admin route outside the token guard.
func (s *Server) handleAdminToken(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Admin.APIKey == "" {
		s.log.Error().Msg("admin api key is not configured")
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_json")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(s.cfg.Admin.APIKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tok, err := s.auth.Mint()
	if err != nil {
		s.log.Error().Err(err).Msg("admin token mint failed")
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in_seconds"`
	}{Token: tok, ExpiresIn: int64(s.cfg.Admin.TokenTTL.Seconds())})
}

func (s *Server) handleAdminCancel(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id_required")
		return
	}
	jobID := chi.URLParam(r, "jobID")

	job, err := s.jobs.Cancel(r.Context(), tenantID, jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.cache.Invalidate(r.Context(), tenantID, jobID)
	writeJSON(w, http.StatusOK, jobView(job))
}

func (s *Server) handleAdminRetry(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id_required")
		return
	}
	jobID := chi.URLParam(r, "jobID")

	job, err := s.jobs.Retry(r.Context(), tenantID, jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.cache.Invalidate(r.Context(), tenantID, jobID)
	writeJSON(w, http.StatusOK, jobView(job))
}

type flagResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

func flagView(flag *model.AdminFlag) flagResponse {
	return flagResponse{
		Key:       flag.Key,
		Value:     flag.Value,
		Enabled:   flag.Bool(),
		UpdatedAt: flag.UpdatedAt,
	}
}

func (s *Server) handleFlagGet(w http.ResponseWriter, r *http.Request) {
	flag, err := s.flags.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flagView(flag))
}

func (s *Server) handleFlagSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_json")
		return
	}
	flag, err := s.flags.Set(r.Context(), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flagView(flag))
}
