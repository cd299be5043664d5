package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyOrder    = errors.New("order must contain at least one item")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

type ProductNotFoundError struct{ ProductID string }

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

type InsufficientStockError struct{ ProductID string }

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

type InvalidQuantityError struct{ ProductID string }

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid qty for product %s", e.ProductID)
}

// PersistenceError wraps a storage failure without leaking it to clients.
type PersistenceError struct{ Err error }

func (e *PersistenceError) Error() string { return "persistence failure" }
func (e *PersistenceError) Unwrap() error { return e.Err }

// CompensationError means a release after a rolled-back placement failed:
// stock may have leaked and an operator must reconcile the ledger.
type CompensationError struct {
	Cause  error // the error that triggered the rollback
	Leaked []LineItem
	Err    error // the release failure itself
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("stock release failed for %d item(s) after aborted placement: %v", len(e.Leaked), e.Err)
}
func (e *CompensationError) Unwrap() error { return e.Err }
