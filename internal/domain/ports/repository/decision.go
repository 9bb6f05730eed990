package repository

import (
	"context"

	"ai-content-boost/internal/domain/model"
)

type DecisionRepository interface {
	// Record appends once per (tenant, job, decision type); a duplicate is
	// suppressed and reported as false.
	Record(ctx context.Context, tx Tx, rec *model.DecisionRecord) (bool, error)
	ListByJob(ctx context.Context, tx Tx, tenantID, jobID string) ([]*model.DecisionRecord, error)
}
