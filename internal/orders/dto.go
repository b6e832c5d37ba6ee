package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
)

// ListFilters describe the inputs supported by the order list queries.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Channel       *enums.Channel
	DateFrom      *time.Time
	DateTo        *time.Time
	Query         string
}

// Summary exposes the aggregated fields returned in order lists.
type Summary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CreatedAt     time.Time           `json:"created_at"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Channel       enums.Channel       `json:"channel"`
	TotalCents    int64               `json:"total_cents"`
	TotalItems    int                 `json:"total_items"`
}

// List wraps the paginated orders plus the next page cursor.
type List struct {
	Orders     []Summary `json:"orders"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// ShipInput carries the fulfillment fields that must be set atomically with
// the processing -> shipped transition.
type ShipInput struct {
	OrderID        uuid.UUID
	Carrier        string
	ShippingMethod string
	TrackingCode   string
	LabelURL       string
	ActorUserID    *uuid.UUID
	ActorRole      string
}

// CancelInput captures a cancellation request. Reason is mandatory.
type CancelInput struct {
	OrderID     uuid.UUID
	Reason      string
	ActorUserID *uuid.UUID
	ActorRole   string
}
