package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

// Append relies on the (tenant_id, job_id, stage) unique constraint: a
// duplicate write is suppressed at the store, never summed.
func (r *ledgerRepo) Append(ctx context.Context, tx repository.Tx, entry *model.LedgerEntry) (bool, error) {
	const q = `
INSERT INTO usage_ledger (tenant_id, job_id, stage, amount_aej, prompt_tokens, completion_tokens, model, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (tenant_id, job_id, stage) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		entry.TenantID, entry.JobID, string(entry.Stage), entry.AmountAEJ,
		entry.PromptTokens, entry.CompletionTokens, entry.Model, entry.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ledgerRepo) SumByTenantSince(ctx context.Context, tx repository.Tx, tenantID string, since time.Time) (int64, error) {
	const q = `
SELECT COALESCE(SUM(amount_aej), 0) FROM usage_ledger WHERE tenant_id = $1 AND created_at >= $2;`
	row, err := pickRow(ctx, r.pool, tx, q, tenantID, since)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *ledgerRepo) SumByJob(ctx context.Context, tx repository.Tx, tenantID, jobID string) (int64, error) {
	const q = `
SELECT COALESCE(SUM(amount_aej), 0) FROM usage_ledger WHERE tenant_id = $1 AND job_id = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, tenantID, jobID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *ledgerRepo) ListByJob(ctx context.Context, tx repository.Tx, tenantID, jobID string) ([]*model.LedgerEntry, error) {
	const q = `
SELECT id, tenant_id, job_id, stage, amount_aej, prompt_tokens, completion_tokens, model, created_at
FROM usage_ledger WHERE tenant_id = $1 AND job_id = $2 ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, tx, q, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var (
			e     model.LedgerEntry
			stage string
		)
		err := rows.Scan(&e.ID, &e.TenantID, &e.JobID, &stage, &e.AmountAEJ,
			&e.PromptTokens, &e.CompletionTokens, &e.Model, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		e.Stage = model.Stage(stage)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
