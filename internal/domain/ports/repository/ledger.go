package repository

import (
	"context"
	"time"

	"ai-content-boost/internal/domain/model"
)

type LedgerRepository interface {
	// Append writes one charge. A second write for the same
	// (tenant, job, stage) is suppressed, reported as false with no error.
	Append(ctx context.Context, tx Tx, entry *model.LedgerEntry) (bool, error)
	SumByTenantSince(ctx context.Context, tx Tx, tenantID string, since time.Time) (int64, error)
	SumByJob(ctx context.Context, tx Tx, tenantID, jobID string) (int64, error)
	ListByJob(ctx context.Context, tx Tx, tenantID, jobID string) ([]*model.LedgerEntry, error)
}
