package ai

import (
	"context"
	"log"
	"time"

	"clinic-relay/internal/domain/model"
	"clinic-relay/internal/domain/ports/adapter"
)

var _ adapter.Responder = (*NoopResponder)(nil)

// NoopResponder implements the responder port for local/dev testing.
// It logs the prompt instead of calling a real backend.
type NoopResponder struct{}

func NewNoopResponder() *NoopResponder {
	return &NoopResponder{}
}

func (a *NoopResponder) Name() string { return "noop" }

func (a *NoopResponder) Generate(ctx context.Context, systemPrompt string, history []model.Turn, userMessage string) (string, error) {
	// Simulate slight processing time and respect ctx
	select {
	case <-time.After(100 * time.Millisecond):
		// proceed
	case <-ctx.Done():
		return "", ctx.Err()
	}
	log.Printf("[noop-ai] prompt=%q history=%d message=%q\n", systemPrompt, len(history), userMessage)
	return "This is a noop AI response.", nil
}
