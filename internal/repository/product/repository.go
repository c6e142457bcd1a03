package product

import (
	"context"

	"merchantry/internal/domain"
)

type CreateProductInput struct {
	Code        string
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Stock       int
	Available   bool
	Thumbnails  []string
}

// UpdateProductInput carries partial updates; nil fields are left untouched.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	PriceCents  *int64
	Stock       *int
	Available   *bool
	Thumbnails  []string
}

type Repository interface {
	List(ctx context.Context, limit int) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	DecrementStockIfAvailable(ctx context.Context, id string, quantity int) (int, error)
}
