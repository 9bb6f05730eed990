package generation

import (
	"context"
	"time"

	"ai-content-boost/internal/domain/ports/adapter"
)

var _ adapter.GenerationBackend = (*NoopBackend)(nil)

// NoopBackend implements adapter.GenerationBackend for local/dev runs. It
// fabricates a single schema-valid item instead of calling a real provider.
type NoopBackend struct{}

func NewNoopBackend() *NoopBackend {
	return &NoopBackend{}
}

func (n *NoopBackend) Name() string { return "noop" }

func (n *NoopBackend) Generate(ctx context.Context, prompt string, schema adapter.Schema) (*adapter.Generation, error) {
	// Simulate slight processing time and respect ctx
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	item := make(map[string]any, len(schema.ItemFields))
	for _, f := range schema.ItemFields {
		item[f] = "noop " + f
	}
	payload := map[string]any{"items": []any{item}}
	if err := schema.Validate(payload); err != nil {
		return nil, err
	}
	return &adapter.Generation{
		Payload: payload,
		Model:   "noop",
		Usage:   adapter.Usage{},
	}, nil
}
