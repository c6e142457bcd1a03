package domain

import "time"

// Cart holds line items keyed by product. Two lines for the same product
// are coalesced by the cart layer when added, so productId is unique per cart.
// Carts stay reusable after checkout; no terminal state exists.
type Cart struct {
	ID        string     `json:"id"`
	Lines     []CartLine `json:"products"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CartLine references a product by id; the cart does not own the product.
// Quantity is strictly positive once a line passes the cart mutation boundary.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
