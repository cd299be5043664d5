package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderDeleted       = "OrderDeleted"
	EventStockReleaseFailed = "StockReleaseFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    string     `json:"order_id"`
	BuyerID    string     `json:"buyer_id"`
	Items      []LineItem `json:"items"`
	TotalCents int        `json:"total_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

type OrderDeletedPayload struct {
	OrderID string `json:"order_id"`
}

// StockReleaseFailedPayload flags a possible inventory leak: reserved stock
// that could not be returned when a placement was rolled back.
type StockReleaseFailedPayload struct {
	OrderID string     `json:"order_id,omitempty"`
	BuyerID string     `json:"buyer_id"`
	Items   []LineItem `json:"items"`
	Reason  string     `json:"reason"`
}
