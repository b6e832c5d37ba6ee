package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order coming out of checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID     `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	UserID      uuid.UUID     `json:"user_id"`
	Channel     enums.Channel `json:"channel"`
	TotalCents  int64         `json:"total_cents"`
}

// OrderStatusChangedEvent is emitted on every order state transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// OrderPaidEvent is emitted once the gateway approves the payment.
type OrderPaidEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	AmountCents      int64     `json:"amount_cents"`
	PaidAt           time.Time `json:"paid_at"`
}

// OrderPaymentFailedEvent reports a declined or expired charge.
type OrderPaymentFailedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	Reason           string    `json:"reason,omitempty"`
}

// OrderCanceledEvent is emitted whenever an order is canceled.
type OrderCanceledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	CanceledAt  time.Time `json:"canceled_at"`
	Reason      string    `json:"reason,omitempty"`
	Refunded    bool      `json:"refunded"`
}

// OrderRefundedEvent is emitted when a refund settles.
type OrderRefundedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	AmountCents      int64     `json:"amount_cents"`
	RefundedAt       time.Time `json:"refunded_at"`
}

// SubscriptionCreatedEvent signals a new subscription box signup.
type SubscriptionCreatedEvent struct {
	SubscriptionID uuid.UUID            `json:"subscription_id"`
	UserID         uuid.UUID            `json:"user_id"`
	PlanID         uuid.UUID            `json:"plan_id"`
	Cadence        enums.BillingCadence `json:"cadence"`
	PriceCents     int64                `json:"price_cents"`
}

// SubscriptionBilledEvent is emitted when a billing cycle charges successfully.
type SubscriptionBilledEvent struct {
	SubscriptionID   uuid.UUID `json:"subscription_id"`
	UserID           uuid.UUID `json:"user_id"`
	OrderID          uuid.UUID `json:"order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	AmountCents      int64     `json:"amount_cents"`
	NextBillingAt    time.Time `json:"next_billing_at"`
}

// SubscriptionPaymentFailedEvent reports a failed billing attempt and the
// running failure streak.
type SubscriptionPaymentFailedEvent struct {
	SubscriptionID     uuid.UUID `json:"subscription_id"`
	UserID             uuid.UUID `json:"user_id"`
	FailedPaymentCount int       `json:"failed_payment_count"`
	Reason             string    `json:"reason,omitempty"`
}

// SubscriptionStatusChangedEvent covers pause, resume and cancel transitions.
type SubscriptionStatusChangedEvent struct {
	SubscriptionID uuid.UUID                `json:"subscription_id"`
	UserID         uuid.UUID                `json:"user_id"`
	FromStatus     enums.SubscriptionStatus `json:"from_status"`
	ToStatus       enums.SubscriptionStatus `json:"to_status"`
	OccurredAt     time.Time                `json:"occurred_at"`
	Reason         string                   `json:"reason,omitempty"`
}

// SubscriptionDeliveryLoggedEvent is emitted when a box delivery is recorded.
type SubscriptionDeliveryLoggedEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	OrderID        uuid.UUID `json:"order_id"`
	DeliveryCount  int       `json:"delivery_count"`
	DeliveredAt    time.Time `json:"delivered_at"`
}
