package models

import (
	"time"
)

// OrderStatus is the closed set of states an order moves through. The
// backend is the sole writer of authoritative status; clients request
// transitions and apply whatever the backend echoes back.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid reports whether the status is a member of the closed enum.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// OrderType distinguishes how the order leaves the restaurant.
type OrderType string

const (
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeDineIn   OrderType = "dine-in"
)

// Customer carries the name fields attached to an order, if any.
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
}

// Modifier is a display-name + price-delta pair. Denormalized from the
// catalog so historical orders stay readable after menu edits.
type Modifier struct {
	Name       string  `json:"name"`
	PriceDelta float64 `json:"priceDelta"`
}

// OrderItem is a line on an order. MenuItemName is denormalized for the
// same reason as Modifier.
type OrderItem struct {
	MenuItemName        string     `json:"menuItemName"`
	Quantity            int        `json:"quantity"`
	SpecialInstructions string     `json:"specialInstructions,omitempty"`
	Modifiers           []Modifier `json:"modifiers,omitempty"`
}

// Order is the full order snapshot as the backend ships it. OrderNumber is
// unique within a restaurant's active session and never reused; CreatedAt
// never changes after creation.
type Order struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Type        OrderType   `json:"orderType"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	Table       *int        `json:"table,omitempty"`
	Customer    *Customer   `json:"customer,omitempty"`
	Items       []OrderItem `json:"items"`
}

// Notification is a transient staff-facing alert. Client-local only, never
// persisted across a restart.
type Notification struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
	Message     string      `json:"message"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// EventKind distinguishes the two inbound real-time events.
type EventKind string

const (
	EventOrderNew     EventKind = "order:new"
	EventOrderUpdated EventKind = "order:updated"
)

// OrderEvent is a normalized inbound event: a full authoritative snapshot
// of one order, never a delta.
type OrderEvent struct {
	Kind  EventKind `json:"event"`
	Order Order     `json:"order"`
}

// DeviceType identifies the client role to the backend.
type DeviceType string

const (
	DevicePOS DeviceType = "pos"
	DeviceKDS DeviceType = "kds"
)

// DeviceRegistration is the payload for the best-effort device register
// call.
type DeviceRegistration struct {
	DeviceID   string `json:"deviceId"`
	DeviceType string `json:"deviceType"`
	Platform   string `json:"platform"`
	AppVersion string `json:"appVersion"`
}
