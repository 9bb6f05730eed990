package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

const jobColumns = `id, tenant_id, mode, status, progress, request, result,
estimated_cost_aej, final_cost_aej, error_text, created_at, updated_at, finished_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j          model.Job
		mode       string
		status     string
		requestRaw []byte
		resultRaw  []byte
	)
	err := row.Scan(&j.ID, &j.TenantID, &mode, &status, &j.Progress, &requestRaw, &resultRaw,
		&j.EstimatedCost, &j.FinalCost, &j.ErrorText, &j.CreatedAt, &j.UpdatedAt, &j.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	j.Mode = model.Mode(mode)
	j.Status = model.JobStatus(status)
	if err := json.Unmarshal(requestRaw, &j.Request); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if len(resultRaw) > 0 {
		var res model.JobResult
		if err := json.Unmarshal(resultRaw, &res); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		j.Result = &res
	}
	return &j, nil
}

func (r *jobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	requestRaw, err := json.Marshal(job.Request)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO jobs (id, tenant_id, mode, status, progress, request, estimated_cost_aej, error_text, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.TenantID, string(job.Mode), string(job.Status), job.Progress,
		requestRaw, job.EstimatedCost, job.ErrorText, job.CreatedAt, job.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, jobID string) (*model.Job, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1;`, jobID)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) FindForTenant(ctx context.Context, tx repository.Tx, tenantID, jobID string) (*model.Job, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND tenant_id = $2;`, jobID, tenantID)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// MarkRunning also matches a job already running so a redelivery can take
// over after its previous worker died mid-run.
func (r *jobRepo) MarkRunning(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	const q = `
UPDATE jobs SET status = 'running', progress = $2, updated_at = now()
WHERE id = $1 AND status IN ('queued', 'running');`
	tag, err := execSQL(ctx, r.pool, tx, q, jobID, model.ProgressStarted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetProgress only applies while running; a cancel landing mid-run silently
// turns later progress writes into no-ops.
func (r *jobRepo) SetProgress(ctx context.Context, tx repository.Tx, jobID string, progress int) error {
	const q = `UPDATE jobs SET progress = $2, updated_at = now() WHERE id = $1 AND status = 'running';`
	_, err := execSQL(ctx, r.pool, tx, q, jobID, progress)
	return err
}

func (r *jobRepo) SetMode(ctx context.Context, tx repository.Tx, jobID string, mode model.Mode) error {
	const q = `UPDATE jobs SET mode = $2, updated_at = now() WHERE id = $1;`
	_, err := execSQL(ctx, r.pool, tx, q, jobID, string(mode))
	return err
}

func (r *jobRepo) CompleteWithResult(ctx context.Context, tx repository.Tx, jobID string, result *model.JobResult) (bool, error) {
	resultRaw, err := json.Marshal(result)
	if err != nil {
		return false, err
	}
	const q = `
UPDATE jobs SET status = 'done', progress = $3, result = $2, error_text = '', finished_at = now(), updated_at = now()
WHERE id = $1 AND status = 'running';`
	tag, err := execSQL(ctx, r.pool, tx, q, jobID, resultRaw, model.ProgressDone)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *jobRepo) MarkError(ctx context.Context, tx repository.Tx, jobID, errText string) (bool, error) {
	const q = `
UPDATE jobs SET status = 'error', error_text = $2, result = NULL, finished_at = now(), updated_at = now()
WHERE id = $1 AND status IN ('queued', 'running');`
	tag, err := execSQL(ctx, r.pool, tx, q, jobID, errText)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *jobRepo) Cancel(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	const q = `
UPDATE jobs SET status = 'canceled', finished_at = now(), updated_at = now()
WHERE id = $1 AND status IN ('queued', 'running');`
	tag, err := execSQL(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *jobRepo) ResetForRetry(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	const q = `
UPDATE jobs SET status = 'queued', progress = 0, result = NULL, error_text = '',
final_cost_aej = NULL, finished_at = NULL, updated_at = now()
WHERE id = $1 AND status IN ('done', 'error', 'canceled');`
	tag, err := execSQL(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *jobRepo) SetFinalCost(ctx context.Context, tx repository.Tx, jobID string, cost int64) error {
	const q = `UPDATE jobs SET final_cost_aej = $2, updated_at = now() WHERE id = $1;`
	_, err := execSQL(ctx, r.pool, tx, q, jobID, cost)
	return err
}
