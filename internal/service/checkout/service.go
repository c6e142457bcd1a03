package checkout

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"merchantry/internal/domain"
	ticketrepo "merchantry/internal/repository/ticket"
)

// CartStore is the slice of the cart collaborator the engine consumes.
type CartStore interface {
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error
}

// InventoryStore resolves products and performs the conditional decrement.
// DecrementStockIfAvailable must be atomically visible: implementations fail
// with domain.ErrInsufficientStock when stock < quantity, and never let stock
// go negative under concurrent checkouts.
type InventoryStore interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	DecrementStockIfAvailable(ctx context.Context, id string, quantity int) (int, error)
}

// TicketLedger appends purchase receipts.
type TicketLedger interface {
	Create(ctx context.Context, in ticketrepo.CreateTicketInput) (*domain.Ticket, error)
}

// Stores bundles the three collaborators one checkout mutates.
type Stores struct {
	Carts     CartStore
	Inventory InventoryStore
	Tickets   TicketLedger
}

// UnitOfWork runs fn against a consistent set of stores. The postgres
// implementation wraps fn in a single transaction so the decrement, ticket
// append and cart rewrite commit or roll back together.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(Stores) error) error
}

// PurchasedLine is one fulfilled line with the unit price captured when the
// product was loaded during this checkout.
type PurchasedLine struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// Result partitions the cart's original lines: every line lands in either
// Purchased or FailedProductIDs, never both.
type Result struct {
	Ticket           *domain.Ticket  `json:"ticket"`
	Purchased        []PurchasedLine `json:"purchased"`
	FailedProductIDs []string        `json:"failedProducts"`
}

// Service orchestrates one purchase. It owns no persistent state; every read
// and write goes through the injected stores.
type Service struct {
	uow     UnitOfWork
	newCode func() string
	now     func() time.Time
	logger  *log.Logger
}

func New(uow UnitOfWork, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		uow:     uow,
		newCode: uuid.NewString,
		now:     time.Now,
		logger:  logger,
	}
}

// Checkout fulfills the cart best-effort: each line either fully succeeds
// against current stock or fully fails; one short line never blocks the rest.
// Purchased lines are removed from the cart, failed lines remain so the
// purchaser can retry. A ticket is written even when nothing was fulfilled.
//
// Returns domain.ErrNotFound if the cart does not exist (no side effects).
// Per-line insufficient stock or a dangling product reference is absorbed
// into FailedProductIDs, never surfaced as an operation failure.
func (s *Service) Checkout(ctx context.Context, cartID, purchaser string) (*Result, error) {
	var result *Result
	err := s.uow.Within(ctx, func(st Stores) error {
		cart, err := st.Carts.GetByID(ctx, cartID)
		if err != nil {
			return err
		}

		var (
			purchased   []PurchasedLine
			failedLines []domain.CartLine
			failedIDs   []string
			amount      int64
		)
		for _, line := range cart.Lines {
			res, price := s.fulfillLine(ctx, st.Inventory, cartID, line)
			switch res {
			case resolutionPurchased:
				purchased = append(purchased, PurchasedLine{
					ProductID:      line.ProductID,
					Quantity:       line.Quantity,
					UnitPriceCents: price,
				})
				if line.Quantity > 0 {
					amount += int64(line.Quantity) * price
				}
			case resolutionInsufficientStock, resolutionProductMissing:
				failedLines = append(failedLines, line)
				failedIDs = append(failedIDs, line.ProductID)
			default:
				return res.err
			}
		}

		ticket, err := st.Tickets.Create(ctx, ticketrepo.CreateTicketInput{
			Code:        s.newCode(),
			Purchaser:   purchaser,
			AmountCents: amount,
			PurchasedAt: s.now().UTC(),
		})
		if err != nil {
			return err
		}
		s.logger.Printf("checkout: ticket code=%s cart_id=%s purchaser=%s amount_cents=%d purchased=%d failed=%d",
			ticket.Code, cartID, purchaser, amount, len(purchased), len(failedIDs))

		if failedLines == nil {
			failedLines = []domain.CartLine{}
		}
		if err := st.Carts.ReplaceLines(ctx, cartID, failedLines); err != nil {
			return err
		}

		if purchased == nil {
			purchased = []PurchasedLine{}
		}
		if failedIDs == nil {
			failedIDs = []string{}
		}
		result = &Result{Ticket: ticket, Purchased: purchased, FailedProductIDs: failedIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolution tags the fulfillment decision for a single line.
type resolution struct {
	kind int
	err  error
}

var (
	resolutionPurchased         = resolution{kind: 0}
	resolutionInsufficientStock = resolution{kind: 1}
	resolutionProductMissing    = resolution{kind: 2}
)

func storageFailure(err error) resolution {
	return resolution{kind: 3, err: err}
}

// fulfillLine applies the per-line decision: load the product (price capture
// happens here, before any decrement), then conditionally decrement. Later
// lines in the same checkout observe this decrement; nothing is computed from
// a snapshot.
func (s *Service) fulfillLine(ctx context.Context, inv InventoryStore, cartID string, line domain.CartLine) (resolution, int64) {
	p, err := inv.GetByID(ctx, line.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("checkout: cart_id=%s product_id=%s missing, line failed", cartID, line.ProductID)
			return resolutionProductMissing, 0
		}
		return storageFailure(err), 0
	}

	// A zero or negative quantity should have been rejected at the cart
	// boundary; if one slips through it trivially succeeds with no stock
	// effect and contributes nothing to the amount.
	if line.Quantity <= 0 {
		s.logger.Printf("checkout: cart_id=%s product_id=%s qty=%d non-positive, treated as fulfilled", cartID, line.ProductID, line.Quantity)
		return resolutionPurchased, p.PriceCents
	}

	newStock, err := inv.DecrementStockIfAvailable(ctx, line.ProductID, line.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return resolutionInsufficientStock, 0
		}
		return storageFailure(err), 0
	}
	s.logger.Printf("checkout: cart_id=%s product_id=%s qty=%d stock_now=%d", cartID, line.ProductID, line.Quantity, newStock)
	return resolutionPurchased, p.PriceCents
}
