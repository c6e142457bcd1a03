package product

import (
	"context"
	"errors"
	"strings"

	"merchantry/internal/domain"
	productrepo "merchantry/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	PriceCents  int64    `json:"priceCents"`
	Stock       int      `json:"stock"`
	Available   *bool    `json:"available"`
	Thumbnails  []string `json:"thumbnails"`
}

type UpdateInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	PriceCents  *int64   `json:"priceCents"`
	Stock       *int     `json:"stock"`
	Available   *bool    `json:"available"`
	Thumbnails  []string `json:"thumbnails"`
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.repo.List(ctx, limit)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Product, error) {
	if strings.TrimSpace(in.Code) == "" {
		return nil, errors.New("code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("name required")
	}
	if in.PriceCents < 0 {
		return nil, errors.New("price must not be negative")
	}
	if in.Stock < 0 {
		return nil, errors.New("stock must not be negative")
	}
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	return s.repo.Create(ctx, productrepo.CreateProductInput{
		Code:        strings.TrimSpace(in.Code),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    in.Category,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		Available:   available,
		Thumbnails:  in.Thumbnails,
	})
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error) {
	if in.PriceCents != nil && *in.PriceCents < 0 {
		return nil, errors.New("price must not be negative")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return nil, errors.New("stock must not be negative")
	}
	return s.repo.Update(ctx, id, productrepo.UpdateProductInput{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		Available:   in.Available,
		Thumbnails:  in.Thumbnails,
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
