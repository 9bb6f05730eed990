// Package generation holds the backend adapters that turn a rendered prompt
// into a schema-valid content payload. All adapters validate locally and
// report telemetry through the shared metrics registry, so the worker only
// ever sees a usable payload or an error.
package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/ports/adapter"
)

const systemInstruction = "You are a content optimization engine. Respond with the requested JSON object only, no prose and no markdown."

// decodePayload extracts the JSON object from a model response and checks it
// against the schema. Providers occasionally wrap the object in code fences
// or commentary; everything outside the outermost braces is ignored.
func decodePayload(raw string, schema adapter.Schema) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrSchemaViolation)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaViolation, err)
	}
	if err := schema.Validate(payload); err != nil {
		return nil, err
	}
	return payload, nil
}
