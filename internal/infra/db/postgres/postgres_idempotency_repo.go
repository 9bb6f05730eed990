package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/ports/repository"
)

var _ repository.IdempotencyRepository = (*idempotencyRepo)(nil)

type idempotencyRepo struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepo(pool *pgxpool.Pool) *idempotencyRepo {
	return &idempotencyRepo{pool: pool}
}

func (r *idempotencyRepo) FindJobID(ctx context.Context, tx repository.Tx, tenantID, token string) (string, error) {
	const q = `SELECT job_id FROM idempotency_index WHERE tenant_id = $1 AND token = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, tenantID, token)
	if err != nil {
		return "", err
	}
	var jobID string
	if err := row.Scan(&jobID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return jobID, nil
}

func (r *idempotencyRepo) Create(ctx context.Context, tx repository.Tx, tenantID, token, jobID string) error {
	const q = `
INSERT INTO idempotency_index (tenant_id, token, job_id, created_at)
VALUES ($1, $2, $3, $4);`
	_, err := execSQL(ctx, r.pool, tx, q, tenantID, token, jobID, time.Now())
	if isUniqueViolation(err) {
		return domain.ErrIdempotencyConflict
	}
	return err
}
