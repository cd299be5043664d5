package inventory

import (
	"context"
	"sync"
)

type memProduct struct {
	stock      int
	priceCents int
}

// MemoryLedger keeps counters behind one mutex. It satisfies the same
// contract as PostgresLedger and backs tests and local runs.
type MemoryLedger struct {
	mu       sync.Mutex
	products map[string]*memProduct
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{products: map[string]*memProduct{}}
}

// Put sets a product's stock and price, creating it if needed.
func (l *MemoryLedger) Put(productID string, stock, priceCents int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products[productID] = &memProduct{stock: stock, priceCents: priceCents}
}

func (l *MemoryLedger) Reserve(_ context.Context, productID string, qty int) (Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[productID]
	if !ok {
		return Reservation{}, ErrProductNotFound
	}
	if p.stock < qty {
		return Reservation{}, ErrInsufficientStock
	}
	p.stock -= qty
	return Reservation{NewStock: p.stock, PriceCents: p.priceCents}, nil
}

func (l *MemoryLedger) Release(_ context.Context, productID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.stock += qty
	return nil
}

func (l *MemoryLedger) Read(_ context.Context, productID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	return p.stock, nil
}
