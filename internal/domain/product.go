package domain

import "time"

// Product is a catalog entry. Stock is required and never negative;
// checkout depends on it unconditionally.
type Product struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Stock       int       `json:"stock"`
	Available   bool      `json:"available"`
	Thumbnails  []string  `json:"thumbnails,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
