package feed

import "context"

// Notifier is the "product changed" hook the storage layer fires after a
// successful commit. The checkout engine and product service never talk to
// subscribers directly; fan-out is the broker's concern.
type Notifier interface {
	ProductChanged(ctx context.Context, productID string)
}

// Nop discards notifications. Used when no broker is configured.
type Nop struct{}

func (Nop) ProductChanged(context.Context, string) {}
