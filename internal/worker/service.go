package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/dimasprawira/go-marketplace-orders/internal/kafka"
	"github.com/dimasprawira/go-marketplace-orders/internal/orders"
	"github.com/dimasprawira/go-marketplace-orders/internal/redisx"
)

// Service projects order lifecycle events into the Redis status cache and
// surfaces inventory alerts for operators.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderEvent is the consumer handler for the order lifecycle topics.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if seen, _ := s.dedup(ctx, env.EventID); seen {
		return nil
	}

	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.setStatus(ctx, p.OrderID, orders.StatusPending)
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.setStatus(ctx, p.OrderID, p.Status)
	case orders.EventOrderDeleted:
		p, err := kafkax.UnwrapPayload[orders.OrderDeletedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)).Err()
	}
	return nil
}

// HandleInventoryAlert logs possible stock leaks. These need operator
// attention: a failed release means the ledger may be short.
func (s *Service) HandleInventoryAlert(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventStockReleaseFailed {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.StockReleaseFailedPayload](env.Payload)
	if err != nil {
		return err
	}
	for _, it := range p.Items {
		log.Printf("ALERT inventory leak: product=%s qty=%d buyer=%s reason=%s",
			it.ProductID, it.Qty, p.BuyerID, p.Reason)
	}
	return nil
}

func (s *Service) dedup(ctx context.Context, eventID string) (bool, error) {
	key := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, eventID)
	exists, err := redisx.Exists(ctx, s.Redis, key)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	return false, s.Redis.Set(ctx, key, "1", redisx.TTLDedup).Err()
}

func (s *Service) setStatus(ctx context.Context, orderID string, st orders.Status) error {
	b, _ := json.Marshal(map[string]any{"status": st})
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	return s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}
