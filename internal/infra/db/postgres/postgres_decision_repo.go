package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

var _ repository.DecisionRepository = (*decisionRepo)(nil)

type decisionRepo struct {
	pool *pgxpool.Pool
}

func NewDecisionRepo(pool *pgxpool.Pool) *decisionRepo {
	return &decisionRepo{pool: pool}
}

func (r *decisionRepo) Record(ctx context.Context, tx repository.Tx, rec *model.DecisionRecord) (bool, error) {
	const q = `
INSERT INTO decision_log (id, tenant_id, job_id, decision, reason, source_system, content_type, content_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (tenant_id, job_id, decision) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.TenantID, rec.JobID, string(rec.Decision), rec.Reason,
		rec.SourceSystem, rec.ContentType, rec.ContentID, rec.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *decisionRepo) ListByJob(ctx context.Context, tx repository.Tx, tenantID, jobID string) ([]*model.DecisionRecord, error) {
	const q = `
SELECT id, tenant_id, job_id, decision, reason, source_system, content_type, content_id, created_at
FROM decision_log WHERE tenant_id = $1 AND job_id = $2 ORDER BY created_at;`
	rows, err := queryRows(ctx, r.pool, tx, q, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*model.DecisionRecord
	for rows.Next() {
		var (
			rec      model.DecisionRecord
			decision string
		)
		err := rows.Scan(&rec.ID, &rec.TenantID, &rec.JobID, &decision, &rec.Reason,
			&rec.SourceSystem, &rec.ContentType, &rec.ContentID, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		rec.Decision = model.DecisionType(decision)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
