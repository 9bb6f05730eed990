package generation

import (
	"context"
	"fmt"

	"ai-content-boost/internal/config"
	"ai-content-boost/internal/domain/ports/adapter"
)

// NewBackend constructs the configured backend wrapped with the concurrency
// limit. Called once at startup.
func NewBackend(ctx context.Context, cfg *config.GenerationConfig) (adapter.GenerationBackend, error) {
	var (
		backend adapter.GenerationBackend
		err     error
	)
	switch cfg.Provider {
	case "openai":
		backend, err = NewOpenAIBackend(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	case "gemini":
		backend, err = NewGeminiBackend(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxOutputTokens, cfg.Timeout)
	case "gateway":
		backend, err = NewGatewayBackend(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	case "noop":
		backend = NewNoopBackend()
	default:
		return nil, fmt.Errorf("unknown generation provider %q: must be one of openai, gemini, gateway, noop", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewLimitedBackend(backend, cfg.ConcurrentLimit), nil
}
