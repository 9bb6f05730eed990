package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
	"ai-content-boost/internal/domain/ports/usecase"
	"ai-content-boost/internal/infra/audit"
	"ai-content-boost/internal/infra/logging"
	"ai-content-boost/internal/infra/metrics"
)

// Compile-time check
var _ usecase.Jobs = (*JobsUseCase)(nil)

// JobsUseCase covers tenant-facing reads plus the two administrative
// transitions, cancel and retry.
type JobsUseCase struct {
	tenants repository.TenantRepository
	jobs    repository.JobRepository
	holds   repository.QuotaHoldRepository
	ledger  repository.LedgerRepository
	queue   repository.DispatchQueueRepository
	tm      repository.TransactionManager
	sink    *audit.Sink
	log     *zerolog.Logger
}

func NewJobsUseCase(
	tenants repository.TenantRepository,
	jobs repository.JobRepository,
	holds repository.QuotaHoldRepository,
	ledger repository.LedgerRepository,
	queue repository.DispatchQueueRepository,
	tm repository.TransactionManager,
	sink *audit.Sink,
	logger *zerolog.Logger,
) *JobsUseCase {
	jobsLog := logger.With().Str("component", "JobsUseCase").Logger()
	return &JobsUseCase{
		tenants: tenants,
		jobs:    jobs,
		holds:   holds,
		ledger:  ledger,
		queue:   queue,
		tm:      tm,
		sink:    sink,
		log:     &jobsLog,
	}
}

func (uc *JobsUseCase) Get(ctx context.Context, tenantID, jobID string) (*model.Job, error) {
	return uc.jobs.FindForTenant(ctx, repository.NoTX, tenantID, jobID)
}

// Usage derives the month snapshot fresh on every call; consumption is never
// cached durably.
func (uc *JobsUseCase) Usage(ctx context.Context, tenantID string) (*model.UsageSnapshot, error) {
	tenant, err := uc.tenants.FindByID(ctx, repository.NoTX, tenantID)
	if err != nil {
		return nil, err
	}
	month := model.MonthStart(time.Now())
	consumed, err := uc.ledger.SumByTenantSince(ctx, repository.NoTX, tenant.ID, month)
	if err != nil {
		return nil, err
	}
	held, err := uc.holds.SumOpenByTenant(ctx, repository.NoTX, tenant.ID)
	if err != nil {
		return nil, err
	}
	return &model.UsageSnapshot{
		TenantID:      tenant.ID,
		Month:         month,
		Quota:         tenant.MonthlyQuotaAEJ,
		Consumed:      consumed,
		Held:          held,
		LifetimeSpend: tenant.BalanceAEJ,
	}, nil
}

// Cancel moves a queued or running job to canceled and settles it: hold
// released, final cost pinned to the charges so far, queue entry dropped.
// Calling it again on an already-canceled job re-runs the settlement, which
// is idempotent, so a partially failed cancel can be repaired by repeating
// it. Done and error jobs cannot be canceled.
func (uc *JobsUseCase) Cancel(ctx context.Context, tenantID, jobID string) (*model.Job, error) {
	defer logging.TraceDuration(uc.log, "JobsUC.Cancel")()

	job, err := uc.jobs.FindForTenant(ctx, repository.NoTX, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == model.JobStatusDone || job.Status == model.JobStatusError {
		return nil, domain.ErrInvalidTransition
	}

	flipped := false
	if job.Status != model.JobStatusCanceled {
		flipped, err = uc.jobs.Cancel(ctx, repository.NoTX, job.ID)
		if err != nil {
			return nil, err
		}
		if !flipped {
			// lost the race against worker settlement
			job, err = uc.jobs.FindForTenant(ctx, repository.NoTX, tenantID, jobID)
			if err != nil {
				return nil, err
			}
			if job.Status != model.JobStatusCanceled {
				return nil, domain.ErrInvalidTransition
			}
		}
	}

	// Release before touching the queue: if the release fails while the
	// entry is still queued, the worker repeats it at pickup.
	released, err := uc.holds.Release(ctx, repository.NoTX, job.ID)
	if err != nil {
		return nil, err
	}
	if released {
		metrics.IncHoldReleased()
	}

	sum, err := uc.ledger.SumByJob(ctx, repository.NoTX, tenantID, job.ID)
	if err == nil {
		if err := uc.jobs.SetFinalCost(ctx, repository.NoTX, job.ID, sum); err != nil {
			uc.log.Warn().Err(err).Str("job_id", job.ID).Msg("final cost update failed on cancel")
		}
	}
	if _, err := uc.queue.Remove(ctx, repository.NoTX, job.ID); err != nil {
		uc.log.Warn().Err(err).Str("job_id", job.ID).Msg("queue remove failed on cancel")
	}

	if flipped {
		uc.sink.Event(ctx, tenantID, job.ID, model.EventCanceled, "administrative cancel")
		metrics.IncJobSettled(string(model.JobStatusCanceled))
		uc.log.Info().Str("tenant_id", tenantID).Str("job_id", job.ID).Msg("job canceled")
	}
	return uc.jobs.FindForTenant(ctx, repository.NoTX, tenantID, jobID)
}

// Retry is the administrative reverse transition: a terminal job goes back to
// queued under the same id, result, error text, progress and finish time
// cleared. The original estimate is re-held unless the job still has an open
// hold, and the transaction takes the tenant lock so concurrent admissions
// observe the new hold; the quota gate itself is operator-overridden.
func (uc *JobsUseCase) Retry(ctx context.Context, tenantID, jobID string) (*model.Job, error) {
	defer logging.TraceDuration(uc.log, "JobsUC.Retry")()

	job, err := uc.jobs.FindForTenant(ctx, repository.NoTX, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() {
		return nil, domain.ErrInvalidTransition
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockTenant(ctx, tx, tenantID); err != nil {
			return err
		}
		ok, err := uc.jobs.ResetForRetry(ctx, tx, job.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		_, err = uc.holds.FindOpenByJob(ctx, tx, job.ID)
		switch {
		case err == nil:
			// open hold survives into the new run
			return nil
		case errors.Is(err, domain.ErrNotFound):
			return uc.holds.Create(ctx, tx, model.NewQuotaHold(tenantID, job.ID, job.EstimatedCost))
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	if err := uc.queue.Enqueue(ctx, repository.NoTX, job.ID, time.Now()); err != nil {
		uc.log.Warn().Err(err).Str("job_id", job.ID).Msg("re-enqueue failed, job stays queued")
	}
	uc.sink.Event(ctx, tenantID, job.ID, model.EventRetried, "administrative retry")
	uc.log.Info().Str("tenant_id", tenantID).Str("job_id", job.ID).Msg("job retried")
	return uc.jobs.FindForTenant(ctx, repository.NoTX, tenantID, jobID)
}
