package usecase

import (
	"context"

	"ai-content-boost/internal/domain/model"
)

type CreateJobInput struct {
	TenantID         string
	Mode             string
	Items            []model.ContentItem
	IdempotencyToken string
}

type CreateJobOutput struct {
	Job *model.Job
	// Idempotent marks a replay: the returned job was created by an earlier
	// request carrying the same token.
	Idempotent bool
}

// Admission is the quota gate in front of job creation.
type Admission interface {
	Admit(ctx context.Context, in CreateJobInput) (*CreateJobOutput, error)
}

// Jobs covers tenant-facing reads and the administrative transitions.
type Jobs interface {
	Get(ctx context.Context, tenantID, jobID string) (*model.Job, error)
	Usage(ctx context.Context, tenantID string) (*model.UsageSnapshot, error)
	Cancel(ctx context.Context, tenantID, jobID string) (*model.Job, error)
	Retry(ctx context.Context, tenantID, jobID string) (*model.Job, error)
}

// Flags exposes operator toggles, currently the degraded-mode switch.
type Flags interface {
	Get(ctx context.Context, key string) (*model.AdminFlag, error)
	Set(ctx context.Context, key, value string) (*model.AdminFlag, error)
}
