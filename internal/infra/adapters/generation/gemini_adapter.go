package generation

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genai"

	"ai-content-boost/internal/domain/ports/adapter"
	"ai-content-boost/internal/infra/metrics"
)

var _ adapter.GenerationBackend = (*GeminiBackend)(nil)

// GeminiBackend implements adapter.GenerationBackend using the official
// Gemini SDK.
type GeminiBackend struct {
	client  *genai.Client
	model   string
	maxOut  int
	timeout time.Duration
}

func NewGeminiBackend(ctx context.Context, apiKey, baseURL, model string, maxOut int, timeout time.Duration) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiBackend{client: c, model: model, maxOut: maxOut, timeout: timeout}, nil
}

func (g *GeminiBackend) Name() string { return "gemini" }

func (g *GeminiBackend) Generate(ctx context.Context, prompt string, schema adapter.Schema) (*adapter.Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}

	start := time.Now()
	chat, err := g.client.Chats.Create(ctx, g.model, cfg, nil)
	if err != nil {
		metrics.ObserveGeneration(g.Name(), g.model, 0, 0, time.Since(start).Milliseconds(), false)
		return nil, err
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		metrics.ObserveGeneration(g.Name(), g.model, 0, 0, time.Since(start).Milliseconds(), false)
		return nil, err
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		metrics.ObserveGeneration(g.Name(), g.model, 0, 0, time.Since(start).Milliseconds(), false)
		return nil, errors.New("gemini: empty candidate content")
	}

	usage := adapter.Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	usage = ensureUsage(usage, g.model, prompt, text)

	payload, err := decodePayload(text, schema)
	if err != nil {
		metrics.ObserveGeneration(g.Name(), g.model, usage.PromptTokens, usage.CompletionTokens, time.Since(start).Milliseconds(), false)
		return nil, err
	}

	metrics.ObserveGeneration(g.Name(), g.model, usage.PromptTokens, usage.CompletionTokens, time.Since(start).Milliseconds(), true)
	return &adapter.Generation{Payload: payload, Model: g.model, Usage: usage}, nil
}
