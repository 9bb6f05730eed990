package generation

import (
	"github.com/pkoukk/tiktoken-go"

	"ai-content-boost/internal/domain/ports/adapter"
)

// ensureUsage fills in token counts when the provider reported none, so the
// ledger always carries telemetry. Counting uses the model's own encoding
// when tiktoken knows it, cl100k_base otherwise.
func ensureUsage(u adapter.Usage, model, prompt, completion string) adapter.Usage {
	if u.TotalTokens > 0 {
		return u
	}
	u.PromptTokens = countTokens(model, prompt)
	u.CompletionTokens = countTokens(model, completion)
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}

func countTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil || enc == nil {
		// crude approximation, only hit when no encoding could be loaded
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
