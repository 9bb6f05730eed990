package adapter

import (
	"context"
	"fmt"

	"ai-content-boost/internal/domain"
)

// Schema is the shape contract a generation must satisfy. The backend is
// asked for a JSON object holding an "items" array; every element must carry
// the listed fields, non-empty. Prompt wording and field semantics live in
// the template layer; only this shape is load-bearing here.
type Schema struct {
	Name       string
	ItemFields []string
}

// Validate checks a decoded backend payload against the schema. Any
// violation is reported as domain.ErrSchemaViolation so callers can treat it
// like any other backend failure.
func (s Schema) Validate(payload map[string]any) error {
	raw, ok := payload["items"]
	if !ok {
		return fmt.Errorf("%w: missing items", domain.ErrSchemaViolation)
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return fmt.Errorf("%w: items must be a non-empty array", domain.ErrSchemaViolation)
	}
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: items[%d] is not an object", domain.ErrSchemaViolation, i)
		}
		for _, f := range s.ItemFields {
			v, ok := obj[f]
			if !ok {
				return fmt.Errorf("%w: items[%d] missing %q", domain.ErrSchemaViolation, i, f)
			}
			if str, isStr := v.(string); isStr && str == "" {
				return fmt.Errorf("%w: items[%d] has empty %q", domain.ErrSchemaViolation, i, f)
			}
		}
	}
	return nil
}

// Usage for a single generation call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generation is a schema-valid backend payload plus call telemetry.
type Generation struct {
	Payload map[string]any
	Model   string
	Usage   Usage
}

// GenerationBackend is the port for content generation providers. Generate
// must return either a schema-valid payload or an error; adapters validate
// locally before handing anything back.
type GenerationBackend interface {
	Name() string
	Generate(ctx context.Context, prompt string, schema Schema) (*Generation, error)
}
