package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"merchantry/internal/domain"
	ticketrepo "merchantry/internal/repository/ticket"
)

type stubStores struct {
	carts        map[string]*domain.Cart
	products     map[string]*domain.Product
	tickets      []domain.Ticket
	replaced     map[string][]domain.CartLine
	getCartErr   error
	decrementErr error
	createErr    error
	replaceErr   error
}

func newStubStores() *stubStores {
	return &stubStores{
		carts:    map[string]*domain.Cart{},
		products: map[string]*domain.Product{},
		replaced: map[string][]domain.CartLine{},
	}
}

func (s *stubStores) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	if s.getCartErr != nil {
		return nil, s.getCartErr
	}
	c, ok := s.carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *stubStores) ReplaceLines(_ context.Context, cartID string, lines []domain.CartLine) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaced[cartID] = lines
	c, ok := s.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Lines = lines
	return nil
}

type stubInventory struct{ s *stubStores }

func (i stubInventory) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := i.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (i stubInventory) DecrementStockIfAvailable(_ context.Context, id string, qty int) (int, error) {
	if i.s.decrementErr != nil {
		return 0, i.s.decrementErr
	}
	p, ok := i.s.products[id]
	if !ok {
		return 0, domain.ErrInsufficientStock
	}
	if p.Stock < qty {
		return 0, domain.ErrInsufficientStock
	}
	p.Stock -= qty
	return p.Stock, nil
}

type stubLedger struct{ s *stubStores }

func (l stubLedger) Create(_ context.Context, in ticketrepo.CreateTicketInput) (*domain.Ticket, error) {
	if l.s.createErr != nil {
		return nil, l.s.createErr
	}
	t := domain.Ticket{
		ID:          "ticket-1",
		Code:        in.Code,
		Purchaser:   in.Purchaser,
		AmountCents: in.AmountCents,
		PurchasedAt: in.PurchasedAt,
	}
	l.s.tickets = append(l.s.tickets, t)
	return &t, nil
}

type stubUnitOfWork struct{ s *stubStores }

func (u stubUnitOfWork) Within(_ context.Context, fn func(Stores) error) error {
	return fn(Stores{
		Carts:     u.s,
		Inventory: stubInventory{u.s},
		Tickets:   stubLedger{u.s},
	})
}

func newService(s *stubStores) *Service {
	svc := New(stubUnitOfWork{s}, nil)
	svc.newCode = func() string { return "CODE-1" }
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCheckoutPartialFulfillment(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 10, PriceCents: 300}
	s.products["p2"] = &domain.Product{ID: "p2", Stock: 1, PriceCents: 500}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 5},
		{ProductID: "p2", Quantity: 2},
	}}

	res, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Ticket.AmountCents != 1500 {
		t.Fatalf("expected amount 1500, got %d", res.Ticket.AmountCents)
	}
	if len(res.Purchased) != 1 || res.Purchased[0].ProductID != "p1" || res.Purchased[0].Quantity != 5 || res.Purchased[0].UnitPriceCents != 300 {
		t.Fatalf("unexpected purchased partition: %+v", res.Purchased)
	}
	if len(res.FailedProductIDs) != 1 || res.FailedProductIDs[0] != "p2" {
		t.Fatalf("unexpected failed partition: %v", res.FailedProductIDs)
	}
	if s.products["p1"].Stock != 5 {
		t.Fatalf("expected p1 stock 5, got %d", s.products["p1"].Stock)
	}
	if s.products["p2"].Stock != 1 {
		t.Fatalf("failed line must not touch stock, got %d", s.products["p2"].Stock)
	}
	lines := s.replaced["c1"]
	if len(lines) != 1 || lines[0].ProductID != "p2" || lines[0].Quantity != 2 {
		t.Fatalf("cart must keep only failed lines with quantities intact, got %+v", lines)
	}
	if res.Ticket.Purchaser != "buyer@example.com" || res.Ticket.Code != "CODE-1" {
		t.Fatalf("unexpected ticket %+v", res.Ticket)
	}
}

func TestCheckoutCartNotFound(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 3, PriceCents: 100}

	_, err := newService(s).Checkout(context.Background(), "missing", "buyer@example.com")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(s.tickets) != 0 {
		t.Fatalf("no ticket may be written for a missing cart")
	}
	if s.products["p1"].Stock != 3 {
		t.Fatalf("no stock mutation may happen for a missing cart")
	}
}

func TestCheckoutExactStockMatch(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 3, PriceCents: 100}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{{ProductID: "p1", Quantity: 3}}}

	res, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.products["p1"].Stock != 0 {
		t.Fatalf("exact match must drain stock to 0, got %d", s.products["p1"].Stock)
	}
	if len(res.FailedProductIDs) != 0 {
		t.Fatalf("expected no failures, got %v", res.FailedProductIDs)
	}
	if got := s.replaced["c1"]; len(got) != 0 {
		t.Fatalf("cart must be empty after full fulfillment, got %+v", got)
	}
	if res.Ticket.AmountCents != 300 {
		t.Fatalf("expected amount 300, got %d", res.Ticket.AmountCents)
	}
}

func TestCheckoutAllLinesFail(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 0, PriceCents: 100}
	s.products["p2"] = &domain.Product{ID: "p2", Stock: 1, PriceCents: 200}
	original := []domain.CartLine{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 2},
	}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: append([]domain.CartLine(nil), original...)}

	res, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Ticket == nil || res.Ticket.AmountCents != 0 {
		t.Fatalf("full failure still creates a zero-amount ticket, got %+v", res.Ticket)
	}
	if len(res.FailedProductIDs) != 2 {
		t.Fatalf("expected both lines failed, got %v", res.FailedProductIDs)
	}
	lines := s.replaced["c1"]
	if len(lines) != len(original) {
		t.Fatalf("cart content must be unchanged, got %+v", lines)
	}
	for i, line := range lines {
		if line != original[i] {
			t.Fatalf("line %d altered: %+v vs %+v", i, line, original[i])
		}
	}
}

func TestCheckoutMissingProductFailsLineNotCheckout(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 5, PriceCents: 100}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "ghost", Quantity: 1},
		{ProductID: "p1", Quantity: 2},
	}}

	res, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err != nil {
		t.Fatalf("dangling product reference must not abort checkout: %v", err)
	}
	if len(res.FailedProductIDs) != 1 || res.FailedProductIDs[0] != "ghost" {
		t.Fatalf("expected ghost in failed partition, got %v", res.FailedProductIDs)
	}
	if res.Ticket.AmountCents != 200 {
		t.Fatalf("expected amount 200, got %d", res.Ticket.AmountCents)
	}
}

func TestCheckoutPartitionCompleteness(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 1, PriceCents: 100}
	s.products["p2"] = &domain.Product{ID: "p2", Stock: 0, PriceCents: 200}
	s.products["p3"] = &domain.Product{ID: "p3", Stock: 9, PriceCents: 50}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p3", Quantity: 4},
	}}

	res, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Purchased)+len(res.FailedProductIDs) != 3 {
		t.Fatalf("every line must land in exactly one partition: %+v / %v", res.Purchased, res.FailedProductIDs)
	}
	seen := map[string]bool{}
	for _, p := range res.Purchased {
		seen[p.ProductID] = true
	}
	for _, id := range res.FailedProductIDs {
		if seen[id] {
			t.Fatalf("product %s appears in both partitions", id)
		}
	}
}

func TestCheckoutSequentialDecrementsForDuplicateLines(t *testing.T) {
	// Duplicate productIds are coalesced upstream, but the engine must still
	// process them independently against live stock if they appear.
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 5, PriceCents: 100}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p1", Quantity: 3},
	}}

	res, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Purchased) != 1 || len(res.FailedProductIDs) != 1 {
		t.Fatalf("second duplicate line must observe the first decrement: %+v / %v", res.Purchased, res.FailedProductIDs)
	}
	if s.products["p1"].Stock != 2 {
		t.Fatalf("expected stock 2, got %d", s.products["p1"].Stock)
	}
}

func TestCheckoutZeroQuantityLineTriviallySucceeds(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 5, PriceCents: 100}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{{ProductID: "p1", Quantity: 0}}}

	res, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.products["p1"].Stock != 5 {
		t.Fatalf("zero-quantity line must not touch stock, got %d", s.products["p1"].Stock)
	}
	if res.Ticket.AmountCents != 0 {
		t.Fatalf("zero-quantity line contributes nothing, got %d", res.Ticket.AmountCents)
	}
	if got := s.replaced["c1"]; len(got) != 0 {
		t.Fatalf("zero-quantity line counts as fulfilled and leaves the cart, got %+v", got)
	}
}

func TestCheckoutStorageFailurePropagates(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 5, PriceCents: 100}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1}}}
	s.decrementErr = errors.New("connection reset")

	_, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err == nil || err.Error() != "connection reset" {
		t.Fatalf("storage failure must abort and propagate, got %v", err)
	}
	if len(s.tickets) != 0 {
		t.Fatalf("aborted checkout must not write a ticket")
	}
}

func TestCheckoutTicketWriteFailureAborts(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 5, PriceCents: 100}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1}}}
	s.createErr = errors.New("ledger down")

	_, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err == nil || err.Error() != "ledger down" {
		t.Fatalf("expected ledger error, got %v", err)
	}
	if _, rewritten := s.replaced["c1"]; rewritten {
		t.Fatalf("cart must not be rewritten when the ticket write fails")
	}
}

func TestCheckoutPriceCapturedAtLoadTime(t *testing.T) {
	s := newStubStores()
	s.products["p1"] = &domain.Product{ID: "p1", Stock: 10, PriceCents: 250}
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{{ProductID: "p1", Quantity: 4}}}

	res, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Amount comes from the price read during this checkout, not from
	// whatever the product costs at ticket-read time.
	s.products["p1"].PriceCents = 9999
	if res.Ticket.AmountCents != 1000 {
		t.Fatalf("expected amount 1000, got %d", res.Ticket.AmountCents)
	}
	if res.Purchased[0].UnitPriceCents != 250 {
		t.Fatalf("expected captured unit price 250, got %d", res.Purchased[0].UnitPriceCents)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	s := newStubStores()
	s.carts["c1"] = &domain.Cart{ID: "c1", Lines: []domain.CartLine{}}

	res, err := newService(s).Checkout(context.Background(), "c1", "buyer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Ticket == nil || res.Ticket.AmountCents != 0 {
		t.Fatalf("empty cart still yields a zero-amount ticket, got %+v", res.Ticket)
	}
	if len(res.Purchased) != 0 || len(res.FailedProductIDs) != 0 {
		t.Fatalf("empty cart has empty partitions: %+v / %v", res.Purchased, res.FailedProductIDs)
	}
}
