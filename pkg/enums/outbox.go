package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateSubscription OutboxAggregateType = "subscription"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateSubscription,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated               OutboxEventType = "order_created"
	EventOrderConfirmed             OutboxEventType = "order_confirmed"
	EventOrderPaid                  OutboxEventType = "order_paid"
	EventOrderShipped               OutboxEventType = "order_shipped"
	EventOrderDelivered             OutboxEventType = "order_delivered"
	EventOrderCanceled              OutboxEventType = "order_canceled"
	EventOrderRefunded              OutboxEventType = "order_refunded"
	EventOrderPaymentFailed         OutboxEventType = "order_payment_failed"
	EventSubscriptionCreated        OutboxEventType = "subscription_created"
	EventSubscriptionBilled         OutboxEventType = "subscription_billed"
	EventSubscriptionPaymentFailed  OutboxEventType = "subscription_payment_failed"
	EventSubscriptionPaused         OutboxEventType = "subscription_paused"
	EventSubscriptionResumed        OutboxEventType = "subscription_resumed"
	EventSubscriptionCanceled       OutboxEventType = "subscription_canceled"
	EventSubscriptionDeliveryLogged OutboxEventType = "subscription_delivery_logged"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderConfirmed,
	EventOrderPaid,
	EventOrderShipped,
	EventOrderDelivered,
	EventOrderCanceled,
	EventOrderRefunded,
	EventOrderPaymentFailed,
	EventSubscriptionCreated,
	EventSubscriptionBilled,
	EventSubscriptionPaymentFailed,
	EventSubscriptionPaused,
	EventSubscriptionResumed,
	EventSubscriptionCanceled,
	EventSubscriptionDeliveryLogged,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
