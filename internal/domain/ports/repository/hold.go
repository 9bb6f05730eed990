package repository

import (
	"context"

	"ai-content-boost/internal/domain/model"
)

type QuotaHoldRepository interface {
	// Create inserts an open hold. The store enforces at most one open hold
	// per job.
	Create(ctx context.Context, tx Tx, hold *model.QuotaHold) error
	FindOpenByJob(ctx context.Context, tx Tx, jobID string) (*model.QuotaHold, error)
	// SumOpenByTenant is the `held` term of the admission inequality.
	SumOpenByTenant(ctx context.Context, tx Tx, tenantID string) (int64, error)
	// Release flips the open hold of a job to released. Idempotent: releasing
	// a job with no open hold reports false and no error.
	Release(ctx context.Context, tx Tx, jobID string) (bool, error)
}
