package adapter

import "context"

// Deliverer is the port for the outbound messaging backend. Delivery is
// fire-and-forget from the relay's perspective, but failures must be
// observable to the caller.
type Deliverer interface {
	Deliver(ctx context.Context, to, text string) error
}
