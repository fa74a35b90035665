package domain

import "time"

// ShipmentStatus is tracked independently of the order status.
type ShipmentStatus string

const (
	ShipmentStatusPending        ShipmentStatus = "pending"
	ShipmentStatusLabelCreated   ShipmentStatus = "label_created"
	ShipmentStatusInTransit      ShipmentStatus = "in_transit"
	ShipmentStatusOutForDelivery ShipmentStatus = "out_for_delivery"
	ShipmentStatusDelivered      ShipmentStatus = "delivered"
	ShipmentStatusException      ShipmentStatus = "exception"
)

type TrackingEvent struct {
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
}

type Tracking struct {
	ID          string          `json:"_id,omitempty"`
	Events      []TrackingEvent `json:"events"`
	LastEventAt *time.Time      `json:"lastEventAt,omitempty"`
	LastStatus  string          `json:"lastStatus,omitempty"`
}

// Shipment belongs to exactly one order and owns zero or more tracking events.
type Shipment struct {
	ID                  string         `json:"_id"`
	OrderID             string         `json:"order"`
	Carrier             string         `json:"carrier"`
	CarrierService      string         `json:"carrierService,omitempty"`
	TrackingNumber      string         `json:"trackingNumber,omitempty"`
	Status              ShipmentStatus `json:"status"`
	ShippedAt           *time.Time     `json:"shippedAt,omitempty"`
	EstimatedDeliveryAt *time.Time     `json:"estimatedDeliveryAt,omitempty"`
	DeliveredAt         *time.Time     `json:"deliveredAt,omitempty"`
	Tracking            *Tracking      `json:"tracking,omitempty"`
}

type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusPickedUp  ReturnStatus = "picked_up"
	ReturnStatusReceived  ReturnStatus = "received"
	ReturnStatusRefunded  ReturnStatus = "refunded"
)

// Return belongs to exactly one order.
type Return struct {
	ID              string       `json:"_id"`
	OrderID         string       `json:"order"`
	ReturnNumber    string       `json:"returnNumber"`
	Status          ReturnStatus `json:"status"`
	Reason          string       `json:"reason,omitempty"`
	CustomerComment string       `json:"customerComment,omitempty"`
	RefundAmount    *float64     `json:"refundAmount,omitempty"`
	RequestedAt     *time.Time   `json:"requestedAt,omitempty"`
	RefundedAt      *time.Time   `json:"refundedAt,omitempty"`
}
