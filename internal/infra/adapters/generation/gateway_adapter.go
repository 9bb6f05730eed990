package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-content-boost/internal/domain/ports/adapter"
	"ai-content-boost/internal/infra/metrics"
)

var _ adapter.GenerationBackend = (*GatewayBackend)(nil)

// GatewayBackend implements adapter.GenerationBackend against any
// OpenAI-compatible gateway (self-hosted proxies, regional resellers).
// Chat completions path is the same as OpenAI: /chat/completions
// Authorization: Bearer <key>
type GatewayBackend struct {
	apiKey string
	base   string
	model  string
	client *http.Client
}

func NewGatewayBackend(apiKey, base, model string, timeout time.Duration) (*GatewayBackend, error) {
	if apiKey == "" {
		return nil, errors.New("gateway api key empty")
	}
	if base == "" {
		return nil, errors.New("gateway base url empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayBackend{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (g *GatewayBackend) Name() string { return "gateway" }

type gatewayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (g *GatewayBackend) Generate(ctx context.Context, prompt string, schema adapter.Schema) (*adapter.Generation, error) {
	reqBody := struct {
		Model    string           `json:"model"`
		Messages []gatewayMessage `json:"messages"`
	}{
		Model: g.model,
		Messages: []gatewayMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
	}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		metrics.ObserveGeneration(g.Name(), g.model, 0, 0, time.Since(start).Milliseconds(), false)
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.ObserveGeneration(g.Name(), g.model, 0, 0, time.Since(start).Milliseconds(), false)
		return nil, fmt.Errorf("gateway http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message gatewayMessage `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.ObserveGeneration(g.Name(), g.model, 0, 0, time.Since(start).Milliseconds(), false)
		return nil, err
	}

	text := ""
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			text = c.Message.Content
			break
		}
	}
	if text == "" {
		metrics.ObserveGeneration(g.Name(), g.model, 0, 0, time.Since(start).Milliseconds(), false)
		return nil, errors.New("no choice content")
	}

	usage := ensureUsage(adapter.Usage{
		PromptTokens:     payload.Usage.PromptTokens,
		CompletionTokens: payload.Usage.CompletionTokens,
		TotalTokens:      payload.Usage.TotalTokens,
	}, g.model, prompt, text)

	out, err := decodePayload(text, schema)
	if err != nil {
		metrics.ObserveGeneration(g.Name(), g.model, usage.PromptTokens, usage.CompletionTokens, time.Since(start).Milliseconds(), false)
		return nil, err
	}

	metrics.ObserveGeneration(g.Name(), g.model, usage.PromptTokens, usage.CompletionTokens, time.Since(start).Milliseconds(), true)
	return &adapter.Generation{Payload: out, Model: g.model, Usage: usage}, nil
}
