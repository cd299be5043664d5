package orders

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/dimasprawira/go-marketplace-orders/internal/inventory"
	kafkax "github.com/dimasprawira/go-marketplace-orders/internal/kafka"
)

// OrderStore persists order records. Implementations return ErrNotFound for
// missing orders and raw storage errors otherwise.
type OrderStore interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, s Status) error
	Delete(ctx context.Context, orderID string) error
}

// EventPublisher matches kafka.Producer.Publish. Nil publishers are skipped.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Coordinator turns validated line-item requests into durable orders while
// keeping the ledger consistent: every reservation either ends up in a
// committed order or is released before the call returns.
type Coordinator struct {
	Ledger inventory.Ledger
	Store  OrderStore

	PubPlaced  EventPublisher
	PubStatus  EventPublisher
	PubDeleted EventPublisher
	PubAlerts  EventPublisher
	Service    string
}

// PlaceOrder reserves stock item by item, capturing each unit price at the
// moment of reservation, then persists the order as pending. Any failure
// releases prior reservations in reverse order before the error is returned.
func (c *Coordinator) PlaceOrder(ctx context.Context, buyerID string, items []ItemInput) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range items {
		if it.Qty <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
	}

	var reserved []LineItem
	total := 0

	abort := func(cause error) error {
		leaked, err := c.releaseAll(ctx, reserved)
		if err != nil {
			cerr := &CompensationError{Cause: cause, Leaked: leaked, Err: err}
			log.Printf("ALERT inventory leak: buyer=%s items=%d release failed: %v (after: %v)",
				buyerID, len(leaked), err, cause)
			c.publishAlert(buyerID, leaked, cause)
			return cerr
		}
		return cause
	}

	for _, it := range items {
		res, err := c.Ledger.Reserve(ctx, it.ProductID, it.Qty)
		switch {
		case errors.Is(err, inventory.ErrProductNotFound):
			return nil, abort(&ProductNotFoundError{ProductID: it.ProductID})
		case errors.Is(err, inventory.ErrInsufficientStock):
			return nil, abort(&InsufficientStockError{ProductID: it.ProductID})
		case err != nil:
			return nil, abort(&PersistenceError{Err: err})
		}
		reserved = append(reserved, LineItem{ProductID: it.ProductID, Qty: it.Qty, PriceCents: res.PriceCents})
		total += res.PriceCents * it.Qty
	}

	o := &Order{
		ID:         uuid.NewString(),
		BuyerID:    buyerID,
		Items:      reserved,
		TotalCents: total,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.Store.Create(ctx, o); err != nil {
		// reservations are already durable: roll them back before surfacing
		return nil, abort(&PersistenceError{Err: err})
	}

	c.publish(c.PubPlaced, o.ID, EventOrderPlaced, OrderPlacedPayload{
		OrderID: o.ID, BuyerID: o.BuyerID, Items: o.Items, TotalCents: o.TotalCents,
	})
	return o, nil
}

// releaseAll compensates reservations in reverse order. It runs on a
// cancel-detached context: a caller giving up mid-placement must not strand
// reserved stock.
func (c *Coordinator) releaseAll(ctx context.Context, reserved []LineItem) (leaked []LineItem, firstErr error) {
	if len(reserved) == 0 {
		return nil, nil
	}
	rctx := context.WithoutCancel(ctx)
	for i := len(reserved) - 1; i >= 0; i-- {
		it := reserved[i]
		if err := c.Ledger.Release(rctx, it.ProductID, it.Qty); err != nil {
			leaked = append(leaked, it)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return leaked, firstErr
}

// ListOrders scopes visibility by role: buyers see their own orders, sellers
// see orders containing at least one of their products. Admins have no
// default visibility.
func (c *Coordinator) ListOrders(ctx context.Context, requesterID string, role Role) ([]Order, error) {
	var (
		out []Order
		err error
	)
	switch role {
	case RoleBuyer:
		out, err = c.Store.ListByBuyer(ctx, requesterID)
	case RoleSeller:
		out, err = c.Store.ListBySeller(ctx, requesterID)
	default:
		return []Order{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

// UpdateStatus overwrites an order's status. Any of the known statuses may be
// set regardless of the current one.
func (c *Coordinator) UpdateStatus(ctx context.Context, requesterID string, role Role, orderID string, status Status) (*Order, error) {
	o, err := c.Store.Get(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if role != RoleSeller && role != RoleAdmin {
		return nil, ErrForbidden
	}
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	if err := c.Store.UpdateStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Err: err}
	}
	o.Status = status

	c.publish(c.PubStatus, o.ID, EventOrderStatusChanged, OrderStatusChangedPayload{OrderID: o.ID, Status: status})
	return o, nil
}

// DeleteOrder is an administrative purge: the record is removed outright and
// no stock is returned.
func (c *Coordinator) DeleteOrder(ctx context.Context, requesterID string, role Role, orderID string) error {
	if _, err := c.Store.Get(ctx, orderID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return &PersistenceError{Err: err}
	}
	if role != RoleAdmin {
		return ErrForbidden
	}
	if err := c.Store.Delete(ctx, orderID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return &PersistenceError{Err: err}
	}

	c.publish(c.PubDeleted, orderID, EventOrderDeleted, OrderDeletedPayload{OrderID: orderID})
	return nil
}

func (c *Coordinator) publish(p EventPublisher, orderID, eventType string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      c.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (c *Coordinator) publishAlert(buyerID string, leaked []LineItem, cause error) {
	if c.PubAlerts == nil {
		return
	}
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	ev := Envelope{
		EventID:      uuid.NewString(),
		EventType:    EventStockReleaseFailed,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     c.Service,
		Payload: kafkax.MustMarshal(StockReleaseFailedPayload{
			BuyerID: buyerID, Items: leaked, Reason: reason,
		}),
	}
	c.PubAlerts.Publish([]byte(buyerID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventStockReleaseFailed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
