package generation

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ai-content-boost/internal/domain/ports/adapter"
	"ai-content-boost/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.GenerationBackend = (*OpenAIBackend)(nil)

// OpenAIBackend implements adapter.GenerationBackend over the Chat
// Completions API using the official SDK.
type OpenAIBackend struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIBackend(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIBackend{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}, nil
}

func (o *OpenAIBackend) Name() string { return "openai" }

func (o *OpenAIBackend) Generate(ctx context.Context, prompt string, schema adapter.Schema) (*adapter.Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		metrics.ObserveGeneration(o.Name(), o.model, 0, 0, time.Since(start).Milliseconds(), false)
		return nil, err
	}
	if len(resp.Choices) == 0 {
		metrics.ObserveGeneration(o.Name(), o.model, 0, 0, time.Since(start).Milliseconds(), false)
		return nil, errors.New("openai: no choice content")
	}

	text := resp.Choices[0].Message.Content
	usage := ensureUsage(adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}, o.model, prompt, text)

	payload, err := decodePayload(text, schema)
	if err != nil {
		metrics.ObserveGeneration(o.Name(), o.model, usage.PromptTokens, usage.CompletionTokens, time.Since(start).Milliseconds(), false)
		return nil, err
	}

	metrics.ObserveGeneration(o.Name(), o.model, usage.PromptTokens, usage.CompletionTokens, time.Since(start).Milliseconds(), true)
	return &adapter.Generation{Payload: payload, Model: o.model, Usage: usage}, nil
}
