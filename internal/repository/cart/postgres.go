package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"merchantry/internal/domain"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepo struct {
	db querier
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{db: pool}
}

// NewPostgresTx scopes the repository to an open transaction.
func NewPostgresTx(tx pgx.Tx) Repository {
	return &postgresRepo{db: tx}
}

func (r *postgresRepo) Create(ctx context.Context) (*domain.Cart, error) {
	const q = `INSERT INTO carts DEFAULT VALUES RETURNING id::text, created_at`
	var cart domain.Cart
	if err := r.db.QueryRow(ctx, q).Scan(&cart.ID, &cart.CreatedAt); err != nil {
		return nil, err
	}
	cart.Lines = []domain.CartLine{}
	return &cart, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	const q = `SELECT id::text, created_at FROM carts WHERE id = $1`
	var cart domain.Cart
	if err := r.db.QueryRow(ctx, q, id).Scan(&cart.ID, &cart.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const linesQuery = `
SELECT product_id::text, quantity
FROM cart_lines
WHERE cart_id = $1
ORDER BY created_at ASC
`
	rows, err := r.db.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Lines = []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *postgresRepo) AddLine(ctx context.Context, cartID, productID string, quantity int) error {
	if err := r.ensureCart(ctx, cartID); err != nil {
		return err
	}
	const q = `
INSERT INTO cart_lines (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
`
	_, err := r.db.Exec(ctx, q, cartID, productID, quantity)
	return err
}

func (r *postgresRepo) SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	if err := r.ensureCart(ctx, cartID); err != nil {
		return err
	}
	const q = `
INSERT INTO cart_lines (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = EXCLUDED.quantity
`
	_, err := r.db.Exec(ctx, q, cartID, productID, quantity)
	return err
}

func (r *postgresRepo) RemoveLine(ctx context.Context, cartID, productID string) error {
	if err := r.ensureCart(ctx, cartID); err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error {
	if err := r.ensureCart(ctx, cartID); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	for _, line := range lines {
		const q = `
INSERT INTO cart_lines (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
`
		if _, err := r.db.Exec(ctx, q, cartID, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, cartID string) error {
	if err := r.ensureCart(ctx, cartID); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID)
	return err
}

func (r *postgresRepo) ensureCart(ctx context.Context, cartID string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}
