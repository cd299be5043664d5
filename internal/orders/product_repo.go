package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductRepo owns the catalog rows. Stock mutation during placement goes
// through the inventory ledger, not through here.
type ProductRepo struct{ DB *pgxpool.Pool }

func (r *ProductRepo) Create(ctx context.Context, p *Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, seller_id, name, description, price_cents, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		p.ID, p.SellerID, p.Name, p.Description, p.PriceCents, p.Stock, p.CreatedAt)
	return err
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, seller_id, name, description, price_cents, stock, created_at, updated_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, seller_id, name, description, price_cents, stock, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update writes the mutable fields. seller_id is immutable after creation.
func (r *ProductRepo) Update(ctx context.Context, p *Product) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET name = $2, description = $3, price_cents = $4, stock = $5, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
