// Package sched holds the periodic maintenance loops that run beside the
// worker pool.
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-content-boost/internal/domain/ports/repository"
	"ai-content-boost/internal/infra/metrics"
)

// RetentionSweeper trims old event log rows on a fixed cadence. Events are
// best-effort observability data; the usage ledger and decision log are the
// audit record and are never touched here.
type RetentionSweeper struct {
	interval time.Duration
	keep     time.Duration
	events   repository.EventRepository
	log      *zerolog.Logger
}

func NewRetentionSweeper(interval, keep time.Duration, events repository.EventRepository, logger *zerolog.Logger) *RetentionSweeper {
	swpLog := logger.With().Str("component", "RetentionSweeper").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	if keep <= 0 {
		keep = 30 * 24 * time.Hour
	}
	return &RetentionSweeper{
		interval: interval,
		keep:     keep,
		events:   events,
		log:      &swpLog,
	}
}

func (w *RetentionSweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("keep", w.keep).Msg("Starting retention sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping retention sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.keep)
	n, err := w.events.DeleteOlderThan(ctx, repository.NoTX, cutoff)
	if err != nil {
		w.log.Error().Err(err).Msg("retention sweep failed")
		return
	}
	if n > 0 {
		metrics.AddEventsPruned(n)
		w.log.Info().Int64("count", n).Time("cutoff", cutoff).Msg("event log trimmed")
	}
}
