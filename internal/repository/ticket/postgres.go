package ticket

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

func (r *postgresRepo) Create(ctx context.Context, in CreateTicketInput) (*domain.Ticket, error) {
	const q = `
INSERT INTO tickets (code, purchaser, amount_cents, purchased_at)
VALUES ($1, $2, $3, $4)
RETURNING id::text, code, purchaser, amount_cents, purchased_at
`
	var t domain.Ticket
	err := r.db.QueryRow(ctx, q, in.Code, in.Purchaser, in.AmountCents, in.PurchasedAt).
		Scan(&t.ID, &t.Code, &t.Purchaser, &t.AmountCents, &t.PurchasedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	const q = `
SELECT id::text, code, purchaser, amount_cents, purchased_at
FROM tickets
WHERE code = $1
`
	var t domain.Ticket
	err := r.db.QueryRow(ctx, q, code).Scan(&t.ID, &t.Code, &t.Purchaser, &t.AmountCents, &t.PurchasedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresRepo) ListByPurchaser(ctx context.Context, purchaser string) ([]domain.Ticket, error) {
	const q = `
SELECT id::text, code, purchaser, amount_cents, purchased_at
FROM tickets
WHERE purchaser = $1
ORDER BY purchased_at DESC
`
	rows, err := r.db.Query(ctx, q, purchaser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.Code, &t.Purchaser, &t.AmountCents, &t.PurchasedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
