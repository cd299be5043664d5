package orders

const (
	TopicOrderPlaced        = "orders.placed"
	TopicOrderStatusChanged = "orders.status"
	TopicOrderDeleted       = "orders.deleted"
	TopicInventoryAlerts    = "inventory.alerts"
)

// Partition key = order_id so all events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
