package model

import (
	"time"

	"ai-content-boost/internal/domain"
)

type Mode string

const (
	ModeQuickBoost  Mode = "quick_boost"
	ModeFullRewrite Mode = "full_rewrite"
	ModeMetaRefresh Mode = "meta_refresh"

	// ModeLegacyBoost is still accepted on the wire; the analyse stage
	// rewrites it to ModeQuickBoost.
	ModeLegacyBoost Mode = "boost"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeQuickBoost, ModeFullRewrite, ModeMetaRefresh, ModeLegacyBoost:
		return Mode(s), nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

// Canonical resolves legacy aliases to their current mode name.
func (m Mode) Canonical() Mode {
	if m == ModeLegacyBoost {
		return ModeQuickBoost
	}
	return m
}

type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusDone     JobStatus = "done"
	JobStatusError    JobStatus = "error"
	JobStatusCanceled JobStatus = "canceled"
)

func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStatusQueued, JobStatusRunning, JobStatusDone, JobStatusError, JobStatusCanceled:
		return JobStatus(s), nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError || s == JobStatusCanceled
}

// CanTransition reports whether s may move to next. The only path out of a
// terminal status is the administrative retry back to queued.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusRunning || next == JobStatusCanceled
	case JobStatusRunning:
		return next == JobStatusDone || next == JobStatusError || next == JobStatusCanceled
	case JobStatusDone, JobStatusError, JobStatusCanceled:
		return next == JobStatusQueued
	default:
		return false
	}
}

// Progress checkpoints written by the worker.
const (
	ProgressQueued    = 0
	ProgressStarted   = 10
	ProgressDecided   = 30
	ProgressGenerated = 60
	ProgressApplied   = 90
	ProgressDone      = 100
)

// ContentItem identifies one piece of source content explicitly; nothing is
// inferred from free-form text.
type ContentItem struct {
	SourceSystem string `json:"source_system"`
	ContentType  string `json:"content_type"`
	ContentID    string `json:"content_id"`
	Language     string `json:"language"`
	Title        string `json:"title,omitempty"`
	Excerpt      string `json:"excerpt,omitempty"`
}

type JobRequest struct {
	Mode  Mode          `json:"mode"`
	Items []ContentItem `json:"items"`
}

type ResultSource string

const (
	SourceBackend  ResultSource = "backend"
	SourceFallback ResultSource = "fallback"
)

const ReviewStatusReady = "ready_to_review"

// JobResult is the payload persisted when a job reaches done. Fallback
// results keep the backend error alongside the synthesized content.
type JobResult struct {
	Result       map[string]any `json:"result"`
	Source       ResultSource   `json:"source"`
	Error        string         `json:"error,omitempty"`
	ReviewStatus string         `json:"review_status"`
}

type Job struct {
	ID            string
	TenantID      string
	Mode          Mode
	Status        JobStatus
	Progress      int
	Request       JobRequest
	Result        *JobResult
	EstimatedCost int64
	FinalCost     *int64
	ErrorText     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	FinishedAt    *time.Time
}

func NewJob(id, tenantID string, req JobRequest, estimate int64) (*Job, error) {
	if id == "" || tenantID == "" || len(req.Items) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Job{
		ID:            id,
		TenantID:      tenantID,
		Mode:          req.Mode,
		Status:        JobStatusQueued,
		Progress:      ProgressQueued,
		Request:       req,
		EstimatedCost: estimate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
