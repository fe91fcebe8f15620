package whatsapp

import (
	"context"
	"log"

	"clinic-relay/internal/domain/ports/adapter"
)

var _ adapter.Deliverer = (*NoopSender)(nil)

// NoopSender logs outbound messages instead of delivering them. Used in
// dev mode and whenever no WhatsApp credentials are configured.
type NoopSender struct{}

func NewNoopSender() *NoopSender { return &NoopSender{} }

func (s *NoopSender) Deliver(ctx context.Context, to, text string) error {
	log.Printf("[noop-whatsapp] to=%s text=%q\n", to, text)
	return nil
}
