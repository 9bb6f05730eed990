package flags

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

// Snapshot is the flag state the rest of the process reads. Workers never
// query the store directly; they see the last polled snapshot, so a flag
// flip takes effect within one poll interval without adding a read to the
// job hot path.
type Snapshot struct {
	ForceDegraded bool
	FetchedAt     time.Time
}

// Poller refreshes admin flags from the store on a fixed interval and
// serves them from memory.
type Poller struct {
	interval time.Duration
	repo     repository.FlagRepository
	current  atomic.Value
	log      *zerolog.Logger
}

func NewPoller(interval time.Duration, repo repository.FlagRepository, logger *zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	pollLog := logger.With().Str("component", "FlagPoller").Logger()
	p := &Poller{
		interval: interval,
		repo:     repo,
		log:      &pollLog,
	}
	p.current.Store(Snapshot{})
	return p
}

func (p *Poller) Run(ctx context.Context) error {
	p.log.Info().Dur("interval", p.interval).Msg("Starting flag poller")
	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Stopping flag poller")
			return ctx.Err()
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// refresh keeps the previous snapshot on store errors so a flaky database
// cannot flap the degraded state.
func (p *Poller) refresh(ctx context.Context) {
	degraded := false
	flag, err := p.repo.Find(ctx, repository.NoTX, model.FlagForceDegraded)
	switch {
	case err == nil:
		degraded = flag.Bool()
	case errors.Is(err, domain.ErrNotFound):
		// flag never set; treat as off
	default:
		p.log.Warn().Err(err).Msg("flag refresh failed, keeping previous snapshot")
		return
	}

	prev := p.Current()
	if prev.ForceDegraded != degraded {
		p.log.Info().Bool("force_degraded", degraded).Msg("degraded mode flag changed")
	}
	p.current.Store(Snapshot{ForceDegraded: degraded, FetchedAt: time.Now()})
}

func (p *Poller) Current() Snapshot {
	snap, _ := p.current.Load().(Snapshot)
	return snap
}

// Degraded reports whether generation backends should be bypassed.
func (p *Poller) Degraded() bool {
	return p.Current().ForceDegraded
}
