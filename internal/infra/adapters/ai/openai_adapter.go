package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"clinic-relay/internal/domain/model"
	"clinic-relay/internal/domain/ports/adapter"
	"clinic-relay/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.Responder = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements the responder port using the Chat
// Completions API.
type OpenAIAdapter struct {
	apiKey      string
	base        string // e.g., https://api.openai.com/v1
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	enc         *tiktoken.Tiktoken // best-effort prompt token counting
}

func NewOpenAIAdapter(apiKey, model string, temperature float64, maxTokens int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, _ = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	return &OpenAIAdapter{
		apiKey:      apiKey,
		base:        "https://api.openai.com/v1",
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: 30 * time.Second},
		enc:         enc,
	}, nil
}

// WithBase points the adapter at an OpenAI-compatible endpoint.
func (o *OpenAIAdapter) WithBase(base string) *OpenAIAdapter {
	if base != "" {
		o.base = base
	}
	return o
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) Generate(ctx context.Context, systemPrompt string, history []model.Turn, userMessage string) (string, error) {
	// [system] + prior history + [new user message]; the system prompt
	// is never part of the rolling log.
	msgs := make([]model.Turn, 0, len(history)+2)
	msgs = append(msgs, model.Turn{Role: model.RoleSystem, Content: systemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, model.Turn{Role: model.RoleUser, Content: userMessage})

	if o.enc != nil {
		n := 0
		for _, m := range msgs {
			n += len(o.enc.Encode(m.Content, nil, nil))
		}
		metrics.AddPromptTokens(o.Name(), o.model, n)
	}

	reqBody := struct {
		Model       string       `json:"model"`
		Messages    []model.Turn `json:"messages"`
		Temperature float64      `json:"temperature"`
		MaxTokens   int          `json:"max_tokens"`
	}{Model: o.model, Messages: msgs, Temperature: o.temperature, MaxTokens: o.maxTokens}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message model.Turn `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}
