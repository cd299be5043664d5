package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger enforces the stock invariant in the database itself: the
// conditional UPDATE is one statement, so two reservations racing for the
// last unit can never both see stock >= qty.
type PostgresLedger struct{ DB *pgxpool.Pool }

func (l *PostgresLedger) Reserve(ctx context.Context, productID string, qty int) (Reservation, error) {
	var res Reservation
	err := l.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING stock, price_cents`, productID, qty).Scan(&res.NewStock, &res.PriceCents)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, err
	}
	// no row matched: missing product or not enough stock
	var exists bool
	if err := l.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return Reservation{}, err
	}
	if !exists {
		return Reservation{}, ErrProductNotFound
	}
	return Reservation{}, ErrInsufficientStock
}

func (l *PostgresLedger) Release(ctx context.Context, productID string, qty int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (l *PostgresLedger) Read(ctx context.Context, productID string) (int, error) {
	var stock int
	err := l.DB.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}
