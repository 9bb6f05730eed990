package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

var _ repository.QuotaHoldRepository = (*holdRepo)(nil)

type holdRepo struct {
	pool *pgxpool.Pool
}

func NewQuotaHoldRepo(pool *pgxpool.Pool) *holdRepo {
	return &holdRepo{pool: pool}
}

func (r *holdRepo) Create(ctx context.Context, tx repository.Tx, hold *model.QuotaHold) error {
	const q = `
INSERT INTO quota_holds (id, tenant_id, job_id, amount_aej, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`
	_, err := execSQL(ctx, r.pool, tx, q,
		hold.ID, hold.TenantID, hold.JobID, hold.AmountAEJ, string(hold.Status), hold.CreatedAt)
	// The partial unique index on open holds turns a double-reserve into a
	// conflict instead of a quota leak.
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *holdRepo) FindOpenByJob(ctx context.Context, tx repository.Tx, jobID string) (*model.QuotaHold, error) {
	const q = `
SELECT id, tenant_id, job_id, amount_aej, status, created_at, released_at
FROM quota_holds WHERE job_id = $1 AND status = 'held';`
	row, err := pickRow(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, err
	}
	var (
		h      model.QuotaHold
		status string
	)
	err = row.Scan(&h.ID, &h.TenantID, &h.JobID, &h.AmountAEJ, &status, &h.CreatedAt, &h.ReleasedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	h.Status = model.HoldStatus(status)
	return &h, nil
}

func (r *holdRepo) SumOpenByTenant(ctx context.Context, tx repository.Tx, tenantID string) (int64, error) {
	const q = `
SELECT COALESCE(SUM(amount_aej), 0) FROM quota_holds WHERE tenant_id = $1 AND status = 'held';`
	row, err := pickRow(ctx, r.pool, tx, q, tenantID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *holdRepo) Release(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	const q = `
UPDATE quota_holds SET status = 'released', released_at = now()
WHERE job_id = $1 AND status = 'held';`
	tag, err := execSQL(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
