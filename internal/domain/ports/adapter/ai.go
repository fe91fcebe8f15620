package adapter

import (
	"context"

	"clinic-relay/internal/domain/model"
)

// Responder is the port for the generative-text backend. The prior
// history excludes the message being answered; implementations compose
// [system] + history + [user message] themselves so the system prompt
// never lands in the rolling log.
type Responder interface {
	// Name identifies the provider for logs and metric labels.
	Name() string

	Generate(ctx context.Context, systemPrompt string, history []model.Turn, userMessage string) (string, error)
}
