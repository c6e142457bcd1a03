package cart

import (
	"context"

	"merchantry/internal/domain"
)

type Repository interface {
	Create(ctx context.Context) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	// AddLine coalesces with an existing line for the same product by
	// summing quantities, keeping productId unique per cart.
	AddLine(ctx context.Context, cartID, productID string, quantity int) error
	// SetLineQuantity overwrites a line's quantity, inserting the line if absent.
	SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) error
	RemoveLine(ctx context.Context, cartID, productID string) error
	// ReplaceLines rewrites the cart's content to exactly the given lines.
	ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error
	Clear(ctx context.Context, cartID string) error
}
