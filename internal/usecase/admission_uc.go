package usecase

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
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
var _ usecase.Admission = (*AdmissionUseCase)(nil)

// AdmissionUseCase is the only writer of jobs, holds and idempotency records.
// Admit runs the quota gate in one transaction serialized per tenant, so two
// concurrent requests can never both read the same headroom and jointly
// overshoot the monthly budget.
type AdmissionUseCase struct {
	tenants repository.TenantRepository
	jobs    repository.JobRepository
	holds   repository.QuotaHoldRepository
	ledger  repository.LedgerRepository
	idem    repository.IdempotencyRepository
	queue   repository.DispatchQueueRepository
	tm      repository.TransactionManager
	sink    *audit.Sink
	log     *zerolog.Logger
}

func NewAdmissionUseCase(
	tenants repository.TenantRepository,
	jobs repository.JobRepository,
	holds repository.QuotaHoldRepository,
	ledger repository.LedgerRepository,
	idem repository.IdempotencyRepository,
	queue repository.DispatchQueueRepository,
	tm repository.TransactionManager,
	sink *audit.Sink,
	logger *zerolog.Logger,
) *AdmissionUseCase {
	admLog := logger.With().Str("component", "AdmissionUseCase").Logger()
	return &AdmissionUseCase{
		tenants: tenants,
		jobs:    jobs,
		holds:   holds,
		ledger:  ledger,
		idem:    idem,
		queue:   queue,
		tm:      tm,
		sink:    sink,
		log:     &admLog,
	}
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

// lockTenant serializes same-tenant admissions for the lifetime of the
// transaction. Only pgx transactions can carry the advisory lock; other Tx
// values pass through unlocked.
func lockTenant(ctx context.Context, tx repository.Tx, tenantID string) error {
	ptx, ok := tx.(pgx.Tx)
	if !ok {
		return nil
	}
	_, err := ptx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(tenantID))
	return err
}

func (uc *AdmissionUseCase) Admit(ctx context.Context, in usecase.CreateJobInput) (*usecase.CreateJobOutput, error) {
	defer logging.TraceDuration(uc.log, "AdmissionUC.Admit")()

	mode, verr := validateCreate(in)
	if verr != nil {
		metrics.IncAdmission(in.Mode, "invalid")
		return nil, verr
	}

	tenant, err := uc.tenants.FindByID(ctx, repository.NoTX, in.TenantID)
	if err != nil {
		return nil, err
	}

	estimate, err := model.EstimateCost(mode, len(in.Items))
	if err != nil {
		return nil, err
	}

	var (
		out       *usecase.CreateJobOutput
		remaining int64
	)
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockTenant(ctx, tx, tenant.ID); err != nil {
			return fmt.Errorf("acquire tenant lock: %w", err)
		}

		if in.IdempotencyToken != "" {
			jobID, err := uc.idem.FindJobID(ctx, tx, tenant.ID, in.IdempotencyToken)
			switch {
			case err == nil:
				job, err := uc.jobs.FindByID(ctx, tx, jobID)
				if err != nil {
					return err
				}
				out = &usecase.CreateJobOutput{Job: job, Idempotent: true}
				return nil
			case errors.Is(err, domain.ErrNotFound):
				// token unseen, fall through to creation
			default:
				return err
			}
		}

		consumed, err := uc.ledger.SumByTenantSince(ctx, tx, tenant.ID, model.MonthStart(time.Now()))
		if err != nil {
			return err
		}
		held, err := uc.holds.SumOpenByTenant(ctx, tx, tenant.ID)
		if err != nil {
			return err
		}
		if consumed+held+estimate > tenant.MonthlyQuotaAEJ {
			return &domain.QuotaExceededError{
				TenantID:  tenant.ID,
				Quota:     tenant.MonthlyQuotaAEJ,
				Consumed:  consumed,
				Held:      held,
				Requested: estimate,
			}
		}
		remaining = tenant.MonthlyQuotaAEJ - consumed - held - estimate

		job, err := model.NewJob(ulid.Make().String(), tenant.ID, model.JobRequest{Mode: mode, Items: in.Items}, estimate)
		if err != nil {
			return err
		}
		if err := uc.jobs.Create(ctx, tx, job); err != nil {
			return err
		}
		if err := uc.holds.Create(ctx, tx, model.NewQuotaHold(tenant.ID, job.ID, estimate)); err != nil {
			return err
		}
		if in.IdempotencyToken != "" {
			if err := uc.idem.Create(ctx, tx, tenant.ID, in.IdempotencyToken, job.ID); err != nil {
				return err
			}
		}
		out = &usecase.CreateJobOutput{Job: job}
		return nil
	})
	if err != nil {
		var qerr *domain.QuotaExceededError
		if errors.As(err, &qerr) {
			metrics.IncAdmission(string(mode), "quota_exceeded")
			metrics.SetQuotaRemaining(tenant.ID, qerr.Remaining())
			uc.log.Info().Str("tenant_id", tenant.ID).Int64("requested", qerr.Requested).
				Int64("remaining", qerr.Remaining()).Msg("admission rejected: quota exceeded")
			return nil, err
		}
		metrics.IncAdmission(string(mode), "error")
		return nil, err
	}

	if out.Idempotent {
		metrics.IncAdmission(string(mode), "replay")
		uc.log.Debug().Str("tenant_id", tenant.ID).Str("job_id", out.Job.ID).Msg("idempotent replay")
		return out, nil
	}

	// The reservation is committed; dispatch must not be able to roll it
	// back. A failed enqueue leaves the job visible as queued for operational
	// recovery (admin retry re-enqueues).
	if err := uc.queue.Enqueue(ctx, repository.NoTX, out.Job.ID, time.Now()); err != nil {
		uc.log.Warn().Err(err).Str("job_id", out.Job.ID).Msg("post-commit enqueue failed, job stays queued")
	}
	uc.sink.Event(ctx, tenant.ID, out.Job.ID, model.EventQueued, fmt.Sprintf("admitted with estimate %d", estimate))

	metrics.IncAdmission(string(mode), "admitted")
	metrics.ObserveAdmittedEstimate(string(mode), estimate)
	metrics.SetQuotaRemaining(tenant.ID, remaining)
	uc.log.Info().Str("tenant_id", tenant.ID).Str("job_id", out.Job.ID).
		Str("mode", string(mode)).Int64("estimate", estimate).Msg("job admitted")
	return out, nil
}

func validateCreate(in usecase.CreateJobInput) (model.Mode, *domain.ValidationError) {
	ve := domain.NewValidationError()

	if in.TenantID == "" {
		ve.Add("tenant_id", "required")
	}

	var mode model.Mode
	if in.Mode == "" {
		ve.Add("mode", "required")
	} else {
		var err error
		mode, err = model.ParseMode(in.Mode)
		if err != nil {
			ve.Add("mode", fmt.Sprintf("unknown mode %q", in.Mode))
		}
	}

	switch {
	case len(in.Items) == 0:
		ve.Add("items", "at least one item required")
	case len(in.Items) > model.MaxItemsPerJob:
		ve.Add("items", fmt.Sprintf("at most %d items per job", model.MaxItemsPerJob))
	default:
		for i, it := range in.Items {
			if it.SourceSystem == "" {
				ve.Add(fmt.Sprintf("items[%d].source_system", i), "required")
			}
			if it.ContentType == "" {
				ve.Add(fmt.Sprintf("items[%d].content_type", i), "required")
			}
			if it.ContentID == "" {
				ve.Add(fmt.Sprintf("items[%d].content_id", i), "required")
			}
			if it.Language == "" {
				ve.Add(fmt.Sprintf("items[%d].language", i), "required")
			}
		}
	}

	if !ve.Empty() {
		return "", ve
	}
	return mode, nil
}
