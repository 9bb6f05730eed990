package repository

import (
	"context"

	"ai-content-boost/internal/domain/model"
)

// JobRepository persists jobs. All status mutations are guarded by the
// current status in SQL and report whether they applied, so concurrent
// cancels, duplicate deliveries and stale workers degrade to no-ops instead
// of illegal transitions.
type JobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.Job) error
	FindByID(ctx context.Context, tx Tx, jobID string) (*model.Job, error)
	// FindForTenant scopes the lookup so one tenant can never observe
	// another tenant's job.
	FindForTenant(ctx context.Context, tx Tx, tenantID, jobID string) (*model.Job, error)

	// MarkRunning moves queued to running. It also applies to a job already
	// running so a redelivered claim can take over after a worker died
	// mid-run.
	MarkRunning(ctx context.Context, tx Tx, jobID string) (bool, error)
	SetProgress(ctx context.Context, tx Tx, jobID string, progress int) error
	// SetMode persists the analyse-stage normalization of legacy mode names.
	SetMode(ctx context.Context, tx Tx, jobID string, mode model.Mode) error

	CompleteWithResult(ctx context.Context, tx Tx, jobID string, result *model.JobResult) (bool, error)
	MarkError(ctx context.Context, tx Tx, jobID, errText string) (bool, error)
	Cancel(ctx context.Context, tx Tx, jobID string) (bool, error)
	// ResetForRetry is the single reverse transition: terminal back to
	// queued, clearing result, error text, progress and finish time.
	ResetForRetry(ctx context.Context, tx Tx, jobID string) (bool, error)
	SetFinalCost(ctx context.Context, tx Tx, jobID string, cost int64) error
}
