package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimasprawira/go-marketplace-orders/internal/inventory"
)

type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]*Order
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*Order{}}
}

func (s *fakeStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, orderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) ListByBuyer(_ context.Context, buyerID string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeStore) ListBySeller(_ context.Context, sellerID string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.orders {
		for _, it := range o.Items {
			if it.ProductID == "owned-by-"+sellerID {
				out = append(out, *o)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, orderID string, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.Status = st
	return nil
}

func (s *fakeStore) Delete(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return ErrNotFound
	}
	delete(s.orders, orderID)
	return nil
}

func newTestCoordinator(led inventory.Ledger, st OrderStore) *Coordinator {
	return &Coordinator{Ledger: led, Store: st, Service: "test-api"}
}

func TestPlaceOrderEmpty(t *testing.T) {
	c := newTestCoordinator(inventory.NewMemoryLedger(), newFakeStore())
	_, err := c.PlaceOrder(context.Background(), "buyer-1", nil)
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestPlaceOrderInvalidQty(t *testing.T) {
	led := inventory.NewMemoryLedger()
	led.Put("p1", 5, 100)
	c := newTestCoordinator(led, newFakeStore())

	_, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{{ProductID: "p1", Qty: 0}})
	var iq *InvalidQuantityError
	require.ErrorAs(t, err, &iq)
	assert.Equal(t, "p1", iq.ProductID)

	// nothing was reserved
	stock, err := led.Read(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, stock)
}

func TestPlaceOrderSuccess(t *testing.T) {
	led := inventory.NewMemoryLedger()
	led.Put("p1", 5, 250)
	st := newFakeStore()
	c := newTestCoordinator(led, st)

	o, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{{ProductID: "p1", Qty: 2}})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "buyer-1", o.BuyerID)
	assert.Equal(t, 2*250, o.TotalCents)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 250, o.Items[0].PriceCents)

	stock, err := led.Read(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, stock)

	stored, err := st.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.TotalCents, stored.TotalCents)
}

func TestPlaceOrderTotalSurvivesPriceChange(t *testing.T) {
	led := inventory.NewMemoryLedger()
	led.Put("p1", 10, 100)
	st := newFakeStore()
	c := newTestCoordinator(led, st)

	o, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{{ProductID: "p1", Qty: 3}})
	require.NoError(t, err)

	// price edit after placement must not touch the captured total
	led.Put("p1", 7, 999)
	stored, err := st.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, stored.TotalCents)
	assert.Equal(t, 100, stored.Items[0].PriceCents)
}

func TestPlaceOrderInsufficientStockCompensates(t *testing.T) {
	led := inventory.NewMemoryLedger()
	led.Put("p1", 5, 100)
	led.Put("p2", 1, 100)
	c := newTestCoordinator(led, newFakeStore())

	_, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{
		{ProductID: "p1", Qty: 2},
		{ProductID: "p2", Qty: 3},
	})
	var ins *InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, "p2", ins.ProductID)

	// p1's reservation was released, p2 untouched
	s1, _ := led.Read(context.Background(), "p1")
	s2, _ := led.Read(context.Background(), "p2")
	assert.Equal(t, 5, s1)
	assert.Equal(t, 1, s2)
}

func TestPlaceOrderUnknownProductCompensates(t *testing.T) {
	led := inventory.NewMemoryLedger()
	led.Put("p1", 5, 100)
	c := newTestCoordinator(led, newFakeStore())

	_, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{
		{ProductID: "p1", Qty: 1},
		{ProductID: "ghost", Qty: 1},
	})
	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "ghost", pnf.ProductID)

	s1, _ := led.Read(context.Background(), "p1")
	assert.Equal(t, 5, s1)
}

func TestPlaceOrderPersistenceFailureCompensates(t *testing.T) {
	led := inventory.NewMemoryLedger()
	led.Put("p1", 5, 100)
	st := newFakeStore()
	st.createErr = errors.New("connection reset")
	c := newTestCoordinator(led, st)

	_, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{{ProductID: "p1", Qty: 2}})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)

	// no committed decrement without an order
	s1, _ := led.Read(context.Background(), "p1")
	assert.Equal(t, 5, s1)
	assert.Empty(t, st.orders)
}

type failingReleaseLedger struct{ *inventory.MemoryLedger }

func (l *failingReleaseLedger) Release(context.Context, string, int) error {
	return errors.New("ledger unavailable")
}

func TestPlaceOrderReleaseFailureIsCompensationError(t *testing.T) {
	mem := inventory.NewMemoryLedger()
	mem.Put("p1", 5, 100)
	mem.Put("p2", 0, 100)
	c := newTestCoordinator(&failingReleaseLedger{mem}, newFakeStore())

	_, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{
		{ProductID: "p1", Qty: 2},
		{ProductID: "p2", Qty: 1},
	})
	var ce *CompensationError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Leaked, 1)
	assert.Equal(t, "p1", ce.Leaked[0].ProductID)

	var ins *InsufficientStockError
	require.ErrorAs(t, ce.Cause, &ins)
	assert.Equal(t, "p2", ins.ProductID)
}

type cancelAwareLedger struct{ *inventory.MemoryLedger }

func (l *cancelAwareLedger) Release(ctx context.Context, productID string, qty int) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return l.MemoryLedger.Release(ctx, productID, qty)
}

type cancellingStore struct {
	*fakeStore
	cancel context.CancelFunc
}

func (s *cancellingStore) Create(ctx context.Context, o *Order) error {
	s.cancel()
	return errors.New("request cancelled")
}

func TestPlaceOrderCompensatesAfterCancellation(t *testing.T) {
	mem := inventory.NewMemoryLedger()
	mem.Put("p1", 5, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := &cancellingStore{fakeStore: newFakeStore(), cancel: cancel}
	c := newTestCoordinator(&cancelAwareLedger{mem}, st)

	_, err := c.PlaceOrder(ctx, "buyer-1", []ItemInput{{ProductID: "p1", Qty: 2}})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)

	// release ran despite the cancelled request context
	s1, _ := mem.Read(context.Background(), "p1")
	assert.Equal(t, 5, s1)
}

func TestPlaceOrderConcurrentLastUnit(t *testing.T) {
	led := inventory.NewMemoryLedger()
	led.Put("p1", 1, 100)
	c := newTestCoordinator(led, newFakeStore())

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{{ProductID: "p1", Qty: 1}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var okCount, insCount int
	for err := range results {
		if err == nil {
			okCount++
			continue
		}
		var ins *InsufficientStockError
		require.ErrorAs(t, err, &ins)
		insCount++
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, insCount)

	s1, _ := led.Read(context.Background(), "p1")
	assert.Equal(t, 0, s1)
}

func TestListOrdersByRole(t *testing.T) {
	led := inventory.NewMemoryLedger()
	led.Put("owned-by-seller-1", 10, 100)
	led.Put("p-other", 10, 100)
	st := newFakeStore()
	c := newTestCoordinator(led, st)

	_, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{{ProductID: "owned-by-seller-1", Qty: 1}})
	require.NoError(t, err)
	_, err = c.PlaceOrder(context.Background(), "buyer-2", []ItemInput{{ProductID: "p-other", Qty: 1}})
	require.NoError(t, err)

	mine, err := c.ListOrders(context.Background(), "buyer-1", RoleBuyer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "buyer-1", mine[0].BuyerID)

	selling, err := c.ListOrders(context.Background(), "seller-1", RoleSeller)
	require.NoError(t, err)
	require.Len(t, selling, 1)
	assert.Equal(t, "buyer-1", selling[0].BuyerID)

	// admins have no default visibility
	adm, err := c.ListOrders(context.Background(), "admin-1", RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, adm)
}

func placeOne(t *testing.T, c *Coordinator, led *inventory.MemoryLedger) *Order {
	t.Helper()
	led.Put("p1", 10, 100)
	o, err := c.PlaceOrder(context.Background(), "buyer-1", []ItemInput{{ProductID: "p1", Qty: 1}})
	require.NoError(t, err)
	return o
}

func TestUpdateStatusForbiddenForBuyer(t *testing.T) {
	led := inventory.NewMemoryLedger()
	st := newFakeStore()
	c := newTestCoordinator(led, st)
	o := placeOne(t, c, led)

	_, err := c.UpdateStatus(context.Background(), "buyer-1", RoleBuyer, o.ID, StatusShipped)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := st.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestUpdateStatusValidation(t *testing.T) {
	led := inventory.NewMemoryLedger()
	st := newFakeStore()
	c := newTestCoordinator(led, st)
	o := placeOne(t, c, led)

	_, err := c.UpdateStatus(context.Background(), "seller-1", RoleSeller, "missing", StatusShipped)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.UpdateStatus(context.Background(), "seller-1", RoleSeller, o.ID, Status("lost"))
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatusAllowsBackwardTransition(t *testing.T) {
	led := inventory.NewMemoryLedger()
	st := newFakeStore()
	c := newTestCoordinator(led, st)
	o := placeOne(t, c, led)

	_, err := c.UpdateStatus(context.Background(), "seller-1", RoleSeller, o.ID, StatusDelivered)
	require.NoError(t, err)

	// delivered -> pending stays allowed
	got, err := c.UpdateStatus(context.Background(), "admin-1", RoleAdmin, o.ID, StatusPending)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestDeleteOrder(t *testing.T) {
	led := inventory.NewMemoryLedger()
	st := newFakeStore()
	c := newTestCoordinator(led, st)
	o := placeOne(t, c, led)

	err := c.DeleteOrder(context.Background(), "seller-1", RoleSeller, o.ID)
	require.ErrorIs(t, err, ErrForbidden)

	before, _ := led.Read(context.Background(), "p1")
	err = c.DeleteOrder(context.Background(), "admin-1", RoleAdmin, o.ID)
	require.NoError(t, err)

	_, err = st.Get(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// purge, not cancellation: no restock
	after, _ := led.Read(context.Background(), "p1")
	assert.Equal(t, before, after)

	err = c.DeleteOrder(context.Background(), "admin-1", RoleAdmin, o.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
