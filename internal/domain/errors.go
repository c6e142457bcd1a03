package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict on insert.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInsufficientStock indicates a conditional stock decrement matched no row.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity indicates a zero or negative line quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)
