package product

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"merchantry/internal/domain"
	"merchantry/internal/feed"
)

// querier is the subset of pgx shared by pools and transactions, so the same
// repository code serves both plain calls and the checkout unit of work.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepo struct {
	db       querier
	logger   *log.Logger
	notifier feed.Notifier
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger, notifier feed.Notifier) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if notifier == nil {
		notifier = feed.Nop{}
	}
	return &postgresRepo{db: pool, logger: logger, notifier: notifier}
}

// NewPostgresTx scopes the repository to an open transaction. Change
// notification is the transaction owner's responsibility after commit.
func NewPostgresTx(tx pgx.Tx, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{db: tx, logger: logger, notifier: feed.Nop{}}
}

const productColumns = `id::text, code, name, COALESCE(description, ''), COALESCE(category, ''), price_cents, stock, available, thumbnails, created_at`

func (r *postgresRepo) List(ctx context.Context, limit int) ([]domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products ORDER BY created_at ASC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.Available, &p.Thumbnails, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	var p domain.Product
	err := r.db.QueryRow(ctx, q, id).Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.Available, &p.Thumbnails, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Create(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	const q = `
INSERT INTO products (code, name, description, category, price_cents, stock, available, thumbnails)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, COALESCE($8, '[]'::jsonb))
RETURNING ` + productColumns + `
`
	var thumbs any
	if len(in.Thumbnails) > 0 {
		thumbs = in.Thumbnails
	}
	var p domain.Product
	err := r.db.QueryRow(ctx, q, in.Code, in.Name, in.Description, in.Category, in.PriceCents, in.Stock, in.Available, thumbs).
		Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.Available, &p.Thumbnails, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("product repo: create code=%s error=%v", in.Code, err)
		return nil, err
	}
	r.notifier.ProductChanged(ctx, p.ID)
	return &p, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, in UpdateProductInput) (*domain.Product, error) {
	const q = `
UPDATE products SET
    name        = COALESCE($2, name),
    description = COALESCE($3, description),
    category    = COALESCE($4, category),
    price_cents = COALESCE($5, price_cents),
    stock       = COALESCE($6, stock),
    available   = COALESCE($7, available),
    thumbnails  = COALESCE($8, thumbnails)
WHERE id = $1
RETURNING ` + productColumns + `
`
	var thumbs any
	if in.Thumbnails != nil {
		thumbs = in.Thumbnails
	}
	var p domain.Product
	err := r.db.QueryRow(ctx, q, id, in.Name, in.Description, in.Category, in.PriceCents, in.Stock, in.Available, thumbs).
		Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.Available, &p.Thumbnails, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: update id=%s error=%v", id, err)
		return nil, err
	}
	r.notifier.ProductChanged(ctx, p.ID)
	return &p, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Printf("product repo: delete id=%s error=%v", id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.notifier.ProductChanged(ctx, id)
	return nil
}

// DecrementStockIfAvailable is the single atomically-visible read-modify-write
// gating checkout. The WHERE clause is the sole oversell guard: no row matched
// means insufficient stock, and stock can never go negative.
func (r *postgresRepo) DecrementStockIfAvailable(ctx context.Context, id string, quantity int) (int, error) {
	const q = `
UPDATE products
SET stock = stock - $2
WHERE id = $1 AND stock >= $2
RETURNING stock
`
	var newStock int
	err := r.db.QueryRow(ctx, q, id, quantity).Scan(&newStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientStock
		}
		r.logger.Printf("product repo: decrement id=%s qty=%d error=%v", id, quantity, err)
		return 0, err
	}
	r.notifier.ProductChanged(ctx, id)
	return newStock, nil
}
