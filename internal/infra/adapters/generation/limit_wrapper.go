package generation

import (
	"context"

	"ai-content-boost/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.GenerationBackend = (*limitedBackend)(nil)

type limitedBackend struct {
	inner adapter.GenerationBackend
	sem   chan struct{}
}

// NewLimitedBackend caps concurrent Generate calls against the wrapped
// backend. Waiters respect context cancellation so a draining worker pool
// never blocks on the semaphore.
func NewLimitedBackend(inner adapter.GenerationBackend, maxConcurrent int) adapter.GenerationBackend {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedBackend{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedBackend) Name() string {
	return l.inner.Name()
}

func (l *limitedBackend) Generate(ctx context.Context, prompt string, schema adapter.Schema) (*adapter.Generation, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, prompt, schema)
}
