package ticket

import (
	"context"
	"time"

	"merchantry/internal/domain"
)

type CreateTicketInput struct {
	Code        string
	Purchaser   string
	AmountCents int64
	PurchasedAt time.Time
}

// Repository is an append-only ledger. Tickets are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, in CreateTicketInput) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListByPurchaser(ctx context.Context, purchaser string) ([]domain.Ticket, error)
}
