package domain

import "time"

// Ticket is an immutable purchase receipt. Amount reflects prices captured
// during the checkout that issued it, never the product's current price.
type Ticket struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Purchaser   string    `json:"purchaser"`
	AmountCents int64     `json:"amountCents"`
	PurchasedAt time.Time `json:"purchasedAt"`
}
