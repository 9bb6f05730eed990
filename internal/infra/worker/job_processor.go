package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ai-content-boost/internal/config"
	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/adapter"
	"ai-content-boost/internal/domain/ports/repository"
	"ai-content-boost/internal/gen"
	"ai-content-boost/internal/infra/audit"
	"ai-content-boost/internal/infra/metrics"
	"ai-content-boost/internal/infra/redis"
)

// FlagSource reports the operator's degraded-mode switch. flags.Poller
// satisfies it.
type FlagSource interface {
	Degraded() bool
}

// JobProcessor drains the dispatch queue and runs claimed jobs through the
// staged pipeline: analyse, decision, generation, application. Delivery is
// at-least-once, so every step tolerates running twice: stage charges are
// suppressed by the ledger, status flips are guarded by the store, and a
// redelivered claim of a finished job settles to a no-op.
type JobProcessor struct {
	jobs    repository.JobRepository
	tenants repository.TenantRepository
	holds   repository.QuotaHoldRepository
	ledger  repository.LedgerRepository
	queue   repository.DispatchQueueRepository
	backend adapter.GenerationBackend
	flags   FlagSource
	cache   *redis.JobStatusCache
	sink    *audit.Sink

	poll        time.Duration
	lease       time.Duration
	retryDelay  time.Duration
	maxAttempts int

	log *zerolog.Logger
}

func NewJobProcessor(
	jobs repository.JobRepository,
	tenants repository.TenantRepository,
	holds repository.QuotaHoldRepository,
	ledger repository.LedgerRepository,
	queue repository.DispatchQueueRepository,
	backend adapter.GenerationBackend,
	flags FlagSource,
	cache *redis.JobStatusCache,
	sink *audit.Sink,
	cfg *config.WorkerConfig,
	logger *zerolog.Logger,
) *JobProcessor {
	p := &JobProcessor{
		jobs:        jobs,
		tenants:     tenants,
		holds:       holds,
		ledger:      ledger,
		queue:       queue,
		backend:     backend,
		flags:       flags,
		cache:       cache,
		sink:        sink,
		poll:        500 * time.Millisecond,
		lease:       2 * time.Minute,
		retryDelay:  10 * time.Second,
		maxAttempts: 5,
	}
	if cfg != nil {
		if cfg.PollInterval > 0 {
			p.poll = cfg.PollInterval
		}
		if cfg.Lease > 0 {
			p.lease = cfg.Lease
		}
		if cfg.RetryDelay > 0 {
			p.retryDelay = cfg.RetryDelay
		}
		if cfg.MaxAttempts > 0 {
			p.maxAttempts = cfg.MaxAttempts
		}
	}
	procLog := logger.With().Str("component", "JobProcessor").Logger()
	p.log = &procLog
	return p
}

// Start polls the dispatch queue and hands claims to the pool. Run it in a
// goroutine; it returns when ctx is canceled.
func (p *JobProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Str("backend", p.backend.Name()).Msg("job processor started")
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("job processor stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				p.processOne(ctx)
				return nil
			})
		}
	}
}

func (p *JobProcessor) processOne(ctx context.Context) {
	entry, err := p.queue.Claim(ctx, p.lease)
	if err != nil {
		p.log.Error().Err(err).Msg("queue claim failed")
		return
	}
	if entry == nil {
		return
	}
	metrics.IncQueueDelivery("claimed")

	job, err := p.jobs.FindByID(ctx, repository.NoTX, entry.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			p.log.Warn().Str("job_id", entry.JobID).Msg("claimed entry has no job, dropping")
			p.ack(entry.JobID, "dropped")
			return
		}
		p.redeliver(entry.JobID, err)
		return
	}

	if job.Status.Terminal() {
		p.settleSkipped(job)
		p.ack(entry.JobID, "acked")
		return
	}

	if entry.Attempts > p.maxAttempts {
		p.log.Error().Str("job_id", job.ID).Int("attempts", entry.Attempts).Msg("delivery attempts exhausted")
		p.settleError(job, fmt.Errorf("delivery attempts exhausted after %d claims", entry.Attempts))
		p.ack(entry.JobID, "dropped")
		return
	}

	ok, err := p.jobs.MarkRunning(ctx, repository.NoTX, job.ID)
	if err != nil {
		p.redeliver(entry.JobID, err)
		return
	}
	if !ok {
		// turned terminal between fetch and mark
		fresh, err := p.jobs.FindByID(ctx, repository.NoTX, job.ID)
		if err != nil {
			p.redeliver(entry.JobID, err)
			return
		}
		p.settleSkipped(fresh)
		p.ack(entry.JobID, "acked")
		return
	}
	job.Status = model.JobStatusRunning

	p.log.Info().Str("job_id", job.ID).Str("tenant_id", job.TenantID).
		Str("mode", string(job.Mode)).Int("attempts", entry.Attempts).Msg("processing job")
	start := time.Now()

	err = p.runJob(ctx, job)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		// shutdown mid-run: leave the lease to expire and redeliver
		p.log.Info().Str("job_id", job.ID).Msg("interrupted, leaving for redelivery")
		return
	}
	if err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Msg("job failed")
		p.settleError(job, err)
	}

	metrics.ObserveJobDuration(string(job.Mode), time.Since(start).Seconds())
	p.ack(job.ID, "acked")
	p.log.Info().Str("job_id", job.ID).Dur("duration_ms", time.Since(start)).Msg("job finished")
}

// runJob drives one claimed job through the pipeline. It returns an error
// only for failures that must settle the job as errored; backend trouble is
// not one of them, that degrades to the fallback synthesizer.
func (p *JobProcessor) runJob(ctx context.Context, job *model.Job) error {
	items := job.Request.Items
	first := items[0]

	p.sink.Event(ctx, job.TenantID, job.ID, model.EventStarted, "")
	p.setProgress(ctx, job, model.ProgressStarted)

	// analyse: normalize legacy mode names, then charge
	canonical := job.Mode.Canonical()
	if canonical != job.Mode {
		if err := p.jobs.SetMode(ctx, repository.NoTX, job.ID, canonical); err != nil {
			return fmt.Errorf("normalize mode: %w", err)
		}
		job.Mode = canonical
	}
	var spent int64
	n, err := p.charge(ctx, job, model.StageAnalyse, model.CostStageAnalyse)
	if err != nil {
		return err
	}
	spent += n
	p.sink.Decision(ctx, job.TenantID, job.ID, model.DecisionAnalysed,
		fmt.Sprintf("%d item(s) analysed for %s", len(items), canonical), first)
	p.sink.Event(ctx, job.TenantID, job.ID, model.EventStageAnalyse, "")

	if n, err = p.charge(ctx, job, model.StageDecision, model.CostStageDecision); err != nil {
		return err
	}
	spent += n
	p.sink.Event(ctx, job.TenantID, job.ID, model.EventStageDecision, "")
	p.setProgress(ctx, job, model.ProgressDecided)

	prompt, schema, err := gen.BuildPrompt(job.Mode, items)
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}

	out, err := p.generate(ctx, job, prompt, schema)
	if err != nil {
		return err
	}
	p.sink.Event(ctx, job.TenantID, job.ID, model.EventStageGeneration, string(out.source))
	if n, err = p.chargeGeneration(ctx, job, out); err != nil {
		return err
	}
	spent += n
	p.setProgress(ctx, job, model.ProgressGenerated)

	if n, err = p.charge(ctx, job, model.StageApplication, model.CostStageApplication); err != nil {
		return err
	}
	spent += n
	p.sink.Event(ctx, job.TenantID, job.ID, model.EventStageApplication, "")
	p.sink.Decision(ctx, job.TenantID, job.ID, model.DecisionModified,
		fmt.Sprintf("content updated from %s generation", out.source), first)
	p.setProgress(ctx, job, model.ProgressApplied)

	result := &model.JobResult{
		Result:       out.payload,
		Source:       out.source,
		Error:        out.backendErr,
		ReviewStatus: model.ReviewStatusReady,
	}
	done, err := p.jobs.CompleteWithResult(ctx, repository.NoTX, job.ID, result)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if !done {
		// canceled while we were generating; settle on its behalf
		p.settleObservedCancel(job)
		return nil
	}

	sctx := context.Background()
	final := p.recordFinalCost(sctx, job)
	// lifetime counter moves by this run's charges only; a retried job must
	// not re-count spend from earlier runs
	if spent > 0 {
		if err := p.tenants.AddBalance(sctx, repository.NoTX, job.TenantID, spent); err != nil {
			p.log.Warn().Err(err).Str("tenant_id", job.TenantID).Msg("balance update failed")
		}
	}
	p.releaseHold(sctx, job)
	p.cache.Set(sctx, job.TenantID, job.ID, model.JobStatusDone, model.ProgressDone)
	p.sink.Event(sctx, job.TenantID, job.ID, model.EventDone, fmt.Sprintf("settled at %d AEJ", final))
	metrics.IncJobSettled("done")
	return nil
}

// genOutcome carries the generation result regardless of which path produced
// it.
type genOutcome struct {
	payload    map[string]any
	source     model.ResultSource
	backendErr string
	usage      adapter.Usage
	model      string
}

// generate calls the backend unless degraded mode is forced, and synthesizes
// a fallback payload on any backend failure. The only error it returns is the
// caller's own context expiring.
func (p *JobProcessor) generate(ctx context.Context, job *model.Job, prompt string, schema adapter.Schema) (genOutcome, error) {
	if p.flags != nil && p.flags.Degraded() {
		p.log.Warn().Str("job_id", job.ID).Msg("degraded mode forced, skipping backend")
		metrics.IncFallback("degraded")
		p.sink.Event(ctx, job.TenantID, job.ID, model.EventFallback, domain.ErrDegradedMode.Error())
		return genOutcome{
			payload:    gen.Fallback(job.Mode, job.Request.Items),
			source:     model.SourceFallback,
			backendErr: domain.ErrDegradedMode.Error(),
		}, nil
	}

	g, err := p.backend.Generate(ctx, prompt, schema)
	if err != nil {
		if ctx.Err() != nil {
			return genOutcome{}, ctx.Err()
		}
		p.log.Warn().Err(err).Str("job_id", job.ID).Str("backend", p.backend.Name()).Msg("generation failed, using fallback")
		metrics.IncFallback("backend_failure")
		p.sink.Event(ctx, job.TenantID, job.ID, model.EventFallback, err.Error())
		return genOutcome{
			payload:    gen.Fallback(job.Mode, job.Request.Items),
			source:     model.SourceFallback,
			backendErr: err.Error(),
		}, nil
	}
	return genOutcome{
		payload: g.Payload,
		source:  model.SourceBackend,
		usage:   g.Usage,
		model:   g.Model,
	}, nil
}

// charge appends one stage entry and reports the amount that actually
// landed. A suppressed duplicate means a previous delivery already paid this
// stage, which is fine.
func (p *JobProcessor) charge(ctx context.Context, job *model.Job, stage model.Stage, amount int64) (int64, error) {
	applied, err := p.ledger.Append(ctx, repository.NoTX, model.NewLedgerEntry(job.TenantID, job.ID, stage, amount))
	if err != nil {
		return 0, fmt.Errorf("charge %s: %w", stage, err)
	}
	if !applied {
		p.log.Debug().Str("job_id", job.ID).Str("stage", string(stage)).Msg("stage already charged")
		return 0, nil
	}
	return amount, nil
}

// chargeGeneration charges the generation stage with call telemetry and
// reports the amount that landed. When the stage row already exists and the
// backend was called again anyway, the repeated spend lands in the follow_up
// bucket so it is still accounted.
func (p *JobProcessor) chargeGeneration(ctx context.Context, job *model.Job, out genOutcome) (int64, error) {
	cost := model.GenerationCost(job.Mode, out.source, len(job.Request.Items))
	entry := model.NewLedgerEntry(job.TenantID, job.ID, model.StageGeneration, cost)
	if out.source == model.SourceBackend {
		entry.PromptTokens = out.usage.PromptTokens
		entry.CompletionTokens = out.usage.CompletionTokens
		entry.Model = out.model
	}
	applied, err := p.ledger.Append(ctx, repository.NoTX, entry)
	if err != nil {
		return 0, fmt.Errorf("charge generation: %w", err)
	}
	if applied {
		return cost, nil
	}
	if out.source != model.SourceBackend {
		return 0, nil
	}

	follow := model.NewLedgerEntry(job.TenantID, job.ID, model.StageFollowUp, cost)
	follow.PromptTokens = out.usage.PromptTokens
	follow.CompletionTokens = out.usage.CompletionTokens
	follow.Model = out.model
	applied, err = p.ledger.Append(ctx, repository.NoTX, follow)
	if err != nil {
		return 0, fmt.Errorf("charge follow_up: %w", err)
	}
	if !applied {
		p.log.Debug().Str("job_id", job.ID).Msg("follow_up already charged")
		return 0, nil
	}
	return cost, nil
}

func (p *JobProcessor) setProgress(ctx context.Context, job *model.Job, progress int) {
	if err := p.jobs.SetProgress(ctx, repository.NoTX, job.ID, progress); err != nil {
		p.log.Warn().Err(err).Str("job_id", job.ID).Msg("progress update failed")
		return
	}
	job.Progress = progress
	p.cache.Set(ctx, job.TenantID, job.ID, model.JobStatusRunning, progress)
}

// settleError flips the job to error, releases its hold and records the
// settled cost. When the flip loses to a concurrent cancel the cancel
// settlement is healed instead.
func (p *JobProcessor) settleError(job *model.Job, cause error) {
	sctx := context.Background()
	flipped, err := p.jobs.MarkError(sctx, repository.NoTX, job.ID, cause.Error())
	if err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Msg("error settlement failed")
	}
	p.releaseHold(sctx, job)
	p.recordFinalCost(sctx, job)
	if flipped {
		p.cache.Set(sctx, job.TenantID, job.ID, model.JobStatusError, job.Progress)
		p.sink.Event(sctx, job.TenantID, job.ID, model.EventError, cause.Error())
		metrics.IncJobSettled("error")
	}
}

// settleObservedCancel finishes the bookkeeping of a settlement that raced
// the pipeline, usually a cancel landing mid-run: the other side flipped the
// status, this side has the complete charge picture. The cached status is
// dropped rather than guessed; the next read repopulates it from the store.
func (p *JobProcessor) settleObservedCancel(job *model.Job) {
	sctx := context.Background()
	p.log.Info().Str("job_id", job.ID).Msg("job settled elsewhere mid-run, finishing bookkeeping")
	p.releaseHold(sctx, job)
	p.recordFinalCost(sctx, job)
	p.cache.Invalidate(sctx, job.TenantID, job.ID)
}

// settleSkipped handles a claim whose job is already terminal. A canceled job
// may still carry an open hold when the cancel settlement was cut short.
func (p *JobProcessor) settleSkipped(job *model.Job) {
	sctx := context.Background()
	if job.Status != model.JobStatusCanceled {
		return
	}
	p.log.Info().Str("job_id", job.ID).Msg("claimed job already canceled, healing settlement")
	p.releaseHold(sctx, job)
	p.recordFinalCost(sctx, job)
}

func (p *JobProcessor) releaseHold(ctx context.Context, job *model.Job) {
	released, err := p.holds.Release(ctx, repository.NoTX, job.ID)
	if err != nil {
		p.log.Warn().Err(err).Str("job_id", job.ID).Msg("hold release failed")
		return
	}
	if released {
		metrics.IncHoldReleased()
	}
}

func (p *JobProcessor) recordFinalCost(ctx context.Context, job *model.Job) int64 {
	settled, err := p.ledger.SumByJob(ctx, repository.NoTX, job.TenantID, job.ID)
	if err != nil {
		p.log.Warn().Err(err).Str("job_id", job.ID).Msg("final cost lookup failed")
		return 0
	}
	if err := p.jobs.SetFinalCost(ctx, repository.NoTX, job.ID, settled); err != nil {
		p.log.Warn().Err(err).Str("job_id", job.ID).Msg("final cost update failed")
	}
	return settled
}

func (p *JobProcessor) redeliver(jobID string, cause error) {
	p.log.Warn().Err(cause).Str("job_id", jobID).Msg("delivery failed, scheduling redelivery")
	if err := p.queue.Retry(context.Background(), jobID, p.retryDelay); err != nil {
		p.log.Error().Err(err).Str("job_id", jobID).Msg("redelivery scheduling failed")
		return
	}
	metrics.IncQueueDelivery("retried")
}

func (p *JobProcessor) ack(jobID, outcome string) {
	if err := p.queue.Ack(context.Background(), jobID); err != nil {
		p.log.Warn().Err(err).Str("job_id", jobID).Msg("ack failed")
		return
	}
	metrics.IncQueueDelivery(outcome)
}
