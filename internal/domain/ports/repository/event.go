package repository

import (
	"context"
	"time"

	"ai-content-boost/internal/domain/model"
)

type EventRepository interface {
	Append(ctx context.Context, tx Tx, ev *model.Event) error
	ListByJob(ctx context.Context, tx Tx, tenantID, jobID string) ([]*model.Event, error)
	// DeleteOlderThan trims events created before the cutoff and reports how
	// many rows went away. The event log is observability data, not a billing
	// record, so trimming it is safe.
	DeleteOlderThan(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
