// Package purchase provides the transactional unit of work backing the
// checkout engine: the stock decrements, the ticket append and the cart
// rewrite of one checkout commit or roll back together.
package purchase

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"merchantry/internal/domain"
	"merchantry/internal/feed"
	cartrepo "merchantry/internal/repository/cart"
	productrepo "merchantry/internal/repository/product"
	ticketrepo "merchantry/internal/repository/ticket"
	"merchantry/internal/service/checkout"
)

type UnitOfWork struct {
	pool     *pgxpool.Pool
	notifier feed.Notifier
	logger   *log.Logger
}

func NewUnitOfWork(pool *pgxpool.Pool, notifier feed.Notifier, logger *log.Logger) *UnitOfWork {
	if notifier == nil {
		notifier = feed.Nop{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &UnitOfWork{pool: pool, notifier: notifier, logger: logger}
}

// Within runs fn inside a single transaction. Product-changed notifications
// for decremented stock are emitted only after a successful commit, so
// subscribers never observe rolled-back state.
func (u *UnitOfWork) Within(ctx context.Context, fn func(checkout.Stores) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv := &recordingInventory{inner: productrepo.NewPostgresTx(tx, u.logger)}
	stores := checkout.Stores{
		Carts:     cartrepo.NewPostgresTx(tx),
		Inventory: inv,
		Tickets:   ticketrepo.NewPostgresTx(tx),
	}
	if err := fn(stores); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}
	for _, id := range inv.changed {
		u.notifier.ProductChanged(ctx, id)
	}
	return nil
}

// recordingInventory remembers which products were decremented so the unit of
// work can notify the feed after commit.
type recordingInventory struct {
	inner   productrepo.Repository
	changed []string
}

func (r *recordingInventory) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *recordingInventory) DecrementStockIfAvailable(ctx context.Context, id string, quantity int) (int, error) {
	newStock, err := r.inner.DecrementStockIfAvailable(ctx, id, quantity)
	if err != nil {
		return 0, err
	}
	r.changed = append(r.changed, id)
	return newStock, nil
}
