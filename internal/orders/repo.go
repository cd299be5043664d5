package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements OrderStore on Postgres.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, buyer_id, status, total_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.BuyerID, string(o.Status), o.TotalCents, o.CreatedAt)
	if err != nil {
		return err
	}
	for i, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, pos, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, it.ProductID, it.Qty, it.PriceCents)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	var status string
	err := r.DB.QueryRow(ctx, `
		SELECT id, buyer_id, status, total_cents, created_at
		FROM orders WHERE id = $1`, orderID).
		Scan(&o.ID, &o.BuyerID, &status, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)

	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *Repo) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return r.list(ctx, `
		SELECT id, buyer_id, status, total_cents, created_at
		FROM orders WHERE buyer_id = $1
		ORDER BY created_at DESC`, buyerID)
}

// ListBySeller returns every order containing at least one of the seller's
// products. The full order record is returned, line items of other sellers
// included.
func (r *Repo) ListBySeller(ctx context.Context, sellerID string) ([]Order, error) {
	return r.list(ctx, `
		SELECT DISTINCT o.id, o.buyer_id, o.status, o.total_cents, o.created_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE p.seller_id = $1
		ORDER BY o.created_at DESC`, sellerID)
}

func (r *Repo) list(ctx context.Context, query string, arg any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		var o Order
		var status string
		if err := rows.Scan(&o.ID, &o.BuyerID, &status, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = Status(status)
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, orderIDs []string) (map[string][]LineItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, qty, price_cents
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, pos`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := map[string][]LineItem{}
	for rows.Next() {
		var orderID string
		var it LineItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], it)
	}
	return items, rows.Err()
}

func (r *Repo) UpdateStatus(ctx context.Context, orderID string, s Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, orderID, string(s))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, orderID string) error {
	// order_items go with it via ON DELETE CASCADE; stock is not returned
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
