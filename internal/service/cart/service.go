package cart

import (
	"context"
	"errors"
	"fmt"

	"merchantry/internal/domain"
)

// Service is the cart mutation boundary. Quantity validation happens here so
// the checkout engine can assume quantity > 0 as a precondition.
type Service struct {
	repo        cartRepo
	productRepo productRepo
}

type cartRepo interface {
	Create(ctx context.Context) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	AddLine(ctx context.Context, cartID, productID string, quantity int) error
	SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) error
	RemoveLine(ctx context.Context, cartID, productID string) error
	ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error
	Clear(ctx context.Context, cartID string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartRepo, productRepo productRepo) *Service {
	return &Service{repo: repo, productRepo: productRepo}
}

func (s *Service) Create(ctx context.Context) (*domain.Cart, error) {
	return s.repo.Create(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Cart, error) {
	return s.repo.GetByID(ctx, id)
}

// DetailedLine pairs a cart line with its resolved product. Product is nil
// when the reference dangles.
type DetailedLine struct {
	Product   *domain.Product `json:"product"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
}

// GetDetailed resolves each line's product for display, tolerating dangling
// references instead of failing the whole read.
func (s *Service) GetDetailed(ctx context.Context, id string) (*domain.Cart, []DetailedLine, error) {
	cart, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lines := make([]DetailedLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		detail := DetailedLine{ProductID: line.ProductID, Quantity: line.Quantity}
		p, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
		detail.Product = p
		lines = append(lines, detail)
	}
	return cart, lines, nil
}

// AddProduct coalesces with an existing line for the same product by summing
// quantities. The product must exist.
func (s *Service) AddProduct(ctx context.Context, cartID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
		}
		return nil, err
	}
	if err := s.repo.AddLine(ctx, cartID, productID, quantity); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}

// SetProductQuantity overwrites the line's quantity, inserting it if absent.
func (s *Service) SetProductQuantity(ctx context.Context, cartID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
		}
		return nil, err
	}
	if err := s.repo.SetLineQuantity(ctx, cartID, productID, quantity); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}

func (s *Service) RemoveProduct(ctx context.Context, cartID, productID string) error {
	return s.repo.RemoveLine(ctx, cartID, productID)
}

// ReplaceLines rewrites the cart wholesale. Duplicate productIds in the input
// are coalesced by summing; non-positive quantities are rejected.
func (s *Service) ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) (*domain.Cart, error) {
	merged := make([]domain.CartLine, 0, len(lines))
	index := map[string]int{}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	if err := s.repo.ReplaceLines(ctx, cartID, merged); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}

func (s *Service) Clear(ctx context.Context, cartID string) error {
	return s.repo.Clear(ctx, cartID)
}
