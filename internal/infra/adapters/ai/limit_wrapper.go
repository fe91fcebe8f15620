package ai

import (
	"context"

	"clinic-relay/internal/domain/model"
	"clinic-relay/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Responder = (*limitedResponder)(nil)

type limitedResponder struct {
	inner adapter.Responder
	sem   chan struct{}
}

// NewLimitedResponder bounds concurrent calls against the generative
// backend with a semaphore.
func NewLimitedResponder(inner adapter.Responder, maxConcurrent int) adapter.Responder {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedResponder{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedResponder) Name() string { return l.inner.Name() }

func (l *limitedResponder) Generate(ctx context.Context, systemPrompt string, history []model.Turn, userMessage string) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, systemPrompt, history, userMessage)
}
