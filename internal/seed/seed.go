package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"merchantry/internal/domain"
)

type productSeed struct {
	Code        string
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Stock       int
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []productSeed{
		{
			Code:        "demo-shirt",
			Name:        "Demo T-Shirt",
			Description: "Soft cotton tee for demo purposes",
			Category:    "apparel",
			PriceCents:  1999,
			Stock:       50,
		},
		{
			Code:        "demo-mug",
			Name:        "Demo Mug",
			Description: "Ceramic mug with demo logo",
			Category:    "kitchen",
			PriceCents:  1299,
			Stock:       30,
		},
		{
			Code:        "demo-lamp",
			Name:        "Demo Desk Lamp",
			Description: "Adjustable arm, warm light",
			Category:    "office",
			PriceCents:  4500,
			Stock:       5,
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Code, err)
		}
	}

	if err := ensureAdmin(ctx, pool, "admin@merchantry.local", "adminadmin"); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (code, name, description, category, price_cents, stock, available, thumbnails)
VALUES ($1, $2, $3, $4, $5, $6, true, '[]'::jsonb)
ON CONFLICT (code) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    category = EXCLUDED.category,
    price_cents = EXCLUDED.price_cents,
    stock = EXCLUDED.stock
`
	_, err := pool.Exec(ctx, q, p.Code, p.Name, p.Description, p.Category, p.PriceCents, p.Stock)
	return err
}

func ensureAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO users (email, password_hash, first_name, last_name, role)
VALUES ($1, $2, 'Admin', 'User', $3)
ON CONFLICT (email) DO NOTHING
`
	_, err = pool.Exec(ctx, q, email, string(hash), domain.RoleAdmin)
	return err
}
