package user

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"merchantry/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const userColumns = `id::text, email, password_hash, first_name, last_name, COALESCE(age, 0), role, COALESCE(cart_id::text, ''), created_at`

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (email, password_hash, first_name, last_name, age, role, cart_id)
VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, NULLIF($7, '')::uuid)
RETURNING ` + userColumns + `
`
	var out domain.User
	err := r.pool.QueryRow(ctx, q, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Age, u.Role, u.CartID).
		Scan(&out.ID, &out.Email, &out.PasswordHash, &out.FirstName, &out.LastName, &out.Age, &out.Role, &out.CartID, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("user repo: create email=%s error=%v", u.Email, err)
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetch(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetch(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("user repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Age, &u.Role, &u.CartID, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *postgresRepo) fetch(ctx context.Context, q string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, q, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Age, &u.Role, &u.CartID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
