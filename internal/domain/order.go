package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var allowedOrderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:    {OrderStatusPaid: true, OrderStatusCancelled: true},
	OrderStatusPaid:       {OrderStatusProcessing: true, OrderStatusRefunded: true, OrderStatusCancelled: true},
	OrderStatusProcessing: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:    {OrderStatusDelivered: true},
	OrderStatusDelivered:  {OrderStatusRefunded: true},
}

// CanTransitionTo reports whether an order may move from s to target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return allowedOrderTransitions[s][target]
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

func (s OrderStatus) String() string {
	return string(s)
}

type OrderItem struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
	SKU        string  `json:"sku,omitempty"`
	ImageURL   string  `json:"imageUrl,omitempty"`
}

// Order is immutable once created except for its status and the appended
// status history entries.
type Order struct {
	ID              string      `json:"_id"`
	OrderNumber     string      `json:"orderNumber"`
	Status          OrderStatus `json:"status"`
	Total           float64     `json:"total"`
	Currency        string      `json:"currency"`
	Items           []OrderItem `json:"items"`
	ShippingAddress Address     `json:"shippingAddress"`
	Subtotal        float64     `json:"subtotal,omitempty"`
	ShippingCost    float64     `json:"shippingCost,omitempty"`
	Discount        float64     `json:"discount,omitempty"`
	CreatedAt       time.Time   `json:"createdAt,omitempty"`
}

// OrderStatusEvent is one append-only entry of an order's status history.
// The current status is always the chronologically last event, never a
// separately tracked field.
type OrderStatusEvent struct {
	Status OrderStatus `json:"status"`
	At     time.Time   `json:"at"`
	Note   string      `json:"note,omitempty"`
}

// OrderDetail is the full order view: status history, shipments and returns.
type OrderDetail struct {
	Order
	StatusHistory []OrderStatusEvent `json:"statusHistory,omitempty"`
	Shipments     []Shipment         `json:"shipments,omitempty"`
	Returns       []Return           `json:"returns,omitempty"`
}
