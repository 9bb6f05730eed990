package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/usecase"
)

type jobResponse struct {
	JobID            string           `json:"job_id"`
	Status           string           `json:"status"`
	Progress         int              `json:"progress"`
	Mode             string           `json:"mode"`
	EstimatedCostAEJ int64            `json:"estimated_cost_aej"`
	FinalCostAEJ     *int64           `json:"final_cost_aej,omitempty"`
	ErrorText        string           `json:"error_text,omitempty"`
	Result           *model.JobResult `json:"result,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	FinishedAt       *time.Time       `json:"finished_at,omitempty"`
}

func jobView(job *model.Job) jobResponse {
	return jobResponse{
		JobID:            job.ID,
		Status:           string(job.Status),
		Progress:         job.Progress,
		Mode:             string(job.Mode),
		EstimatedCostAEJ: job.EstimatedCost,
		FinalCostAEJ:     job.FinalCost,
		ErrorText:        job.ErrorText,
		Result:           job.Result,
		CreatedAt:        job.CreatedAt,
		FinishedAt:       job.FinishedAt,
	}
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode             string              `json:"mode"`
		Items            []model.ContentItem `json:"items"`
		IdempotencyToken string              `json:"idempotency_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_json")
		return
	}

	out, err := s.admission.Admit(r.Context(), usecase.CreateJobInput{
		TenantID:         TenantFrom(r.Context()),
		Mode:             req.Mode,
		Items:            req.Items,
		IdempotencyToken: req.IdempotencyToken,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// A replayed token answers 200 with the original job; a fresh admission
	// answers 202 because the work itself is asynchronous.
	code := http.StatusAccepted
	if out.Idempotent {
		code = http.StatusOK
	}
	writeJSON(w, code, struct {
		JobID            string `json:"job_id"`
		Status           string `json:"status"`
		EstimatedCostAEJ int64  `json:"estimated_cost_aej"`
		Idempotent       bool   `json:"idempotent"`
	}{
		JobID:            out.Job.ID,
		Status:           string(out.Job.Status),
		EstimatedCostAEJ: out.Job.EstimatedCost,
		Idempotent:       out.Idempotent,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := TenantFrom(r.Context())
	jobID := chi.URLParam(r, "jobID")

	// Fast path for the polling loop. Terminal hits still go to the store
	// because only it has the result payload.
	if status, progress, ok := s.cache.Get(r.Context(), tenantID, jobID); ok && !status.Terminal() {
		writeJSON(w, http.StatusOK, struct {
			JobID    string `json:"job_id"`
			Status   string `json:"status"`
			Progress int    `json:"progress"`
		}{JobID: jobID, Status: string(status), Progress: progress})
		return
	}

	job, err := s.jobs.Get(r.Context(), tenantID, jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !job.Status.Terminal() {
		s.cache.Set(r.Context(), tenantID, jobID, job.Status, job.Progress)
	}
	writeJSON(w, http.StatusOK, jobView(job))
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	snap, err := s.jobs.Usage(r.Context(), TenantFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TenantID      string `json:"tenant_id"`
		Month         string `json:"month"`
		Quota         int64  `json:"aej_quota"`
		Consumed      int64  `json:"aej_consumed"`
		Held          int64  `json:"aej_held"`
		Remaining     int64  `json:"aej_remaining"`
		LifetimeSpend int64  `json:"aej_lifetime_spend"`
	}{
		TenantID:      snap.TenantID,
		Month:         snap.Month.Format("2006-01"),
		Quota:         snap.Quota,
		Consumed:      snap.Consumed,
		Held:          snap.Held,
		Remaining:     snap.Remaining(),
		LifetimeSpend: snap.LifetimeSpend,
	})
}
