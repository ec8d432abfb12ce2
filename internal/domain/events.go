package domain

import "time"

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published to the order.events topic on creation and on every
// successful status transition.
type OrderEvent struct {
	Event     string      `json:"event"`
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	UserName  string      `json:"user_name"`
	Status    OrderStatus `json:"status"`
	Total     int64       `json:"total"`
	Timestamp time.Time   `json:"timestamp"`
}
