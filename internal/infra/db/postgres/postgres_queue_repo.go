package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

var _ repository.DispatchQueueRepository = (*dispatchQueueRepo)(nil)

type dispatchQueueRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewDispatchQueueRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *dispatchQueueRepo {
	return &dispatchQueueRepo{pool: pool, tm: tm}
}

func (r *dispatchQueueRepo) Enqueue(ctx context.Context, tx repository.Tx, jobID string, runAt time.Time) error {
	const q = `
INSERT INTO dispatch_queue (job_id, run_at, attempts, enqueued_at)
VALUES ($1, $2, 0, now())
ON CONFLICT (job_id) DO UPDATE SET run_at = EXCLUDED.run_at, attempts = 0, enqueued_at = now();`
	_, err := execSQL(ctx, r.pool, tx, q, jobID, runAt)
	return err
}

func (r *dispatchQueueRepo) Remove(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM dispatch_queue WHERE job_id = $1;`, jobID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Claim selects the due entry with the earliest run_at under
// FOR UPDATE SKIP LOCKED, then leases it by pushing run_at past the lease
// window and bumping attempts, all in one transaction. Competing workers
// skip each other instead of blocking; an unacked entry resurfaces once the
// lease expires.
func (r *dispatchQueueRepo) Claim(ctx context.Context, lease time.Duration) (*model.DispatchEntry, error) {
	var entry *model.DispatchEntry

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const pick = `
SELECT job_id, attempts FROM dispatch_queue
WHERE run_at <= now()
ORDER BY run_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`
		row, err := pickRow(ctx, r.pool, tx, pick)
		if err != nil {
			return err
		}
		var (
			jobID    string
			attempts int
		)
		if err := row.Scan(&jobID, &attempts); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}

		const hold = `
UPDATE dispatch_queue
SET run_at = now() + ($2 * interval '1 millisecond'), attempts = attempts + 1
WHERE job_id = $1
RETURNING run_at;`
		row, err = pickRow(ctx, r.pool, tx, hold, jobID, lease.Milliseconds())
		if err != nil {
			return err
		}
		var runAt time.Time
		if err := row.Scan(&runAt); err != nil {
			return err
		}

		entry = &model.DispatchEntry{JobID: jobID, RunAt: runAt, Attempts: attempts + 1}
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil // queue idle
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *dispatchQueueRepo) Ack(ctx context.Context, jobID string) error {
	_, err := execSQL(ctx, r.pool, repository.NoTX, `DELETE FROM dispatch_queue WHERE job_id = $1;`, jobID)
	return err
}

func (r *dispatchQueueRepo) Retry(ctx context.Context, jobID string, delay time.Duration) error {
	const q = `
UPDATE dispatch_queue SET run_at = now() + ($2 * interval '1 millisecond')
WHERE job_id = $1;`
	_, err := execSQL(ctx, r.pool, repository.NoTX, q, jobID, delay.Milliseconds())
	return err
}
