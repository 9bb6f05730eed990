package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

var _ repository.EventRepository = (*eventRepo)(nil)

type eventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *eventRepo {
	return &eventRepo{pool: pool}
}

func (r *eventRepo) Append(ctx context.Context, tx repository.Tx, ev *model.Event) error {
	const q = `
INSERT INTO event_log (tenant_id, job_id, kind, detail, created_at)
VALUES ($1, $2, $3, $4, $5);`
	_, err := execSQL(ctx, r.pool, tx, q, ev.TenantID, ev.JobID, string(ev.Kind), ev.Detail, ev.CreatedAt)
	return err
}

func (r *eventRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM event_log WHERE created_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *eventRepo) ListByJob(ctx context.Context, tx repository.Tx, tenantID, jobID string) ([]*model.Event, error) {
	const q = `
SELECT id, tenant_id, job_id, kind, detail, created_at
FROM event_log WHERE tenant_id = $1 AND job_id = $2 ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, tx, q, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var (
			ev   model.Event
			kind string
		)
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.JobID, &kind, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Kind = model.EventKind(kind)
		events = append(events, &ev)
	}
	return events, rows.Err()
}
