package domain

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// transitions encodes the order state machine:
// pending -> confirmed -> processing -> shipped -> delivered -> refunded,
// with cancellation allowed from pending, confirmed and processing.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// CanTransitionTo reports whether the state machine permits moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Modifiable reports whether an order in this status may have its contents changed.
func (s OrderStatus) Modifiable() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing:
		return true
	}
	return false
}

// Cancellable reports whether an order in this status may be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s.Modifiable()
}

// OrderItem is one line of an order. Subtotal is always recomputed from
// price and quantity, never taken from input.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Subtotal  float64 `json:"subtotal"`
}

// HistoryEntry is one append-only audit record on an order.
type HistoryEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

type Order struct {
	OrderID         string         `json:"order_id"`
	CustomerName    string         `json:"customer_name"`
	CustomerEmail   string         `json:"customer_email"`
	Items           []OrderItem    `json:"items"`
	TotalAmount     float64        `json:"total_amount"`
	Currency        string         `json:"currency"`
	ShippingAddress string         `json:"shipping_address"`
	Notes           string         `json:"notes"`
	Status          OrderStatus    `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	History         []HistoryEntry `json:"history"`
}

// RecomputeTotals rewrites every item subtotal as price*quantity and the
// order total as the sum of subtotals.
func (o *Order) RecomputeTotals() {
	total := 0.0
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].Price * float64(o.Items[i].Quantity)
		total += o.Items[i].Subtotal
	}
	o.TotalAmount = total
}

// AppendHistory records an action on the order and bumps updated_at.
func (o *Order) AppendHistory(action, details string, at time.Time) {
	o.History = append(o.History, HistoryEntry{Action: action, Timestamp: at, Details: details})
	o.UpdatedAt = at
}
