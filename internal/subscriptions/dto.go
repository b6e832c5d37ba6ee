package subscriptions

import (
	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/types"
)

// List wraps paginated subscriptions plus the next page cursor.
type List struct {
	Subscriptions []models.Subscription `json:"subscriptions"`
	NextCursor    string                `json:"next_cursor,omitempty"`
}

// CreateInput captures a new subscription signup. The first charge has
// already been approved by the gateway when this is applied; subscriptions
// are born active.
type CreateInput struct {
	UserID           uuid.UUID
	PlanID           uuid.UUID
	CardToken        *string
	ShippingAddress  types.Address
	BillingAddress   *types.Address
	Preferences      models.SubscriptionPreferences
	GatewayPaymentID string
	ActorUserID      *uuid.UUID
	ActorRole        string
}

// PauseInput captures a pause request.
type PauseInput struct {
	SubscriptionID uuid.UUID
	ActorUserID    *uuid.UUID
	ActorRole      string
}

// ResumeInput captures a resume request.
type ResumeInput struct {
	SubscriptionID uuid.UUID
	ActorUserID    *uuid.UUID
	ActorRole      string
}

// CancelInput captures a cancellation. Reason is mandatory.
type CancelInput struct {
	SubscriptionID uuid.UUID
	Reason         string
	ActorUserID    *uuid.UUID
	ActorRole      string
}

// BillingSuccessInput carries the facts of an approved recurring charge.
type BillingSuccessInput struct {
	SubscriptionID   uuid.UUID
	GatewayPaymentID string
	DedupKey         string
	OrderID          uuid.UUID
	AmountCents      int64
}

// BillingFailureInput carries the facts of a failed recurring charge.
type BillingFailureInput struct {
	SubscriptionID   uuid.UUID
	GatewayPaymentID string
	DedupKey         string
	Reason           string
}

// UpdateAddressInput changes where an active subscription bills or ships.
// Nil fields are left untouched.
type UpdateAddressInput struct {
	SubscriptionID  uuid.UUID
	ShippingAddress *types.Address
	BillingAddress  *types.Address
	ActorUserID     *uuid.UUID
	ActorRole       string
}

// DeliveryInput records a fulfilled box delivery.
type DeliveryInput struct {
	SubscriptionID uuid.UUID
	OrderID        uuid.UUID
	ActorUserID    *uuid.UUID
	ActorRole      string
}
