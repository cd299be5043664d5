package inventory

import (
	"context"
	"errors"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Reservation is the outcome of a successful Reserve: the counter after the
// decrement and the unit price read in the same statement, so callers capture
// the price as of the reservation instant.
type Reservation struct {
	NewStock   int
	PriceCents int
}

// Ledger is the single source of truth for per-product stock. Reserve must be
// an indivisible check-and-decrement: decisions go through Reserve, never
// through Read followed by a write.
type Ledger interface {
	Reserve(ctx context.Context, productID string, qty int) (Reservation, error)
	Release(ctx context.Context, productID string, qty int) error
	Read(ctx context.Context, productID string) (int, error)
}
