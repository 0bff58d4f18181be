package event

import "time"

const (
	OrdersTopic             = "orders.events"
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published by the Order service whenever an order is created or
// changes status. The Queue service consumes it to keep the staff board live.
type OrderEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	OrderID        string    `json:"order_id"`
	OrderNumber    int64     `json:"order_number"`
	SessionID      string    `json:"session_id,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	CancelReason   string    `json:"cancel_reason,omitempty"`

	// Denormalized data for the staff queue display
	CustomerName string  `json:"customer_name,omitempty"`
	ItemCount    int     `json:"item_count,omitempty"`
	Total        float64 `json:"total,omitempty"`
}
