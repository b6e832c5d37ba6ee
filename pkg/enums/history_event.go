package enums

import "fmt"

// OrderEventType classifies entries in the order history ledger.
type OrderEventType string

const (
	OrderEventStatusChange OrderEventType = "status_change"
	OrderEventPayment      OrderEventType = "payment"
	OrderEventShipping     OrderEventType = "shipping"
	OrderEventCancellation OrderEventType = "cancellation"
	OrderEventRefund       OrderEventType = "refund"
	OrderEventNote         OrderEventType = "note"
)

var validOrderEventTypes = []OrderEventType{
	OrderEventStatusChange,
	OrderEventPayment,
	OrderEventShipping,
	OrderEventCancellation,
	OrderEventRefund,
	OrderEventNote,
}

// String implements fmt.Stringer.
func (o OrderEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderEventType.
func (o OrderEventType) IsValid() bool {
	for _, candidate := range validOrderEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// SubscriptionEventType classifies entries in the subscription history ledger.
type SubscriptionEventType string

const (
	SubscriptionEventCreated      SubscriptionEventType = "subscription_created"
	SubscriptionEventPayment      SubscriptionEventType = "payment"
	SubscriptionEventDelivery     SubscriptionEventType = "delivery"
	SubscriptionEventPause        SubscriptionEventType = "pause"
	SubscriptionEventResume       SubscriptionEventType = "resume"
	SubscriptionEventCancellation SubscriptionEventType = "cancellation"
	SubscriptionEventAddress      SubscriptionEventType = "address_change"
)

var validSubscriptionEventTypes = []SubscriptionEventType{
	SubscriptionEventCreated,
	SubscriptionEventPayment,
	SubscriptionEventDelivery,
	SubscriptionEventPause,
	SubscriptionEventResume,
	SubscriptionEventCancellation,
	SubscriptionEventAddress,
}

// String implements fmt.Stringer.
func (s SubscriptionEventType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubscriptionEventType.
func (s SubscriptionEventType) IsValid() bool {
	for _, candidate := range validSubscriptionEventTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// EventStatus qualifies the outcome recorded on a history entry.
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailed  EventStatus = "failed"
	EventStatusPending EventStatus = "pending"
)

var validEventStatuses = []EventStatus{
	EventStatusSuccess,
	EventStatusFailed,
	EventStatusPending,
}

// String implements fmt.Stringer.
func (e EventStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventStatus.
func (e EventStatus) IsValid() bool {
	for _, candidate := range validEventStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventStatus converts raw input into an EventStatus.
func ParseEventStatus(value string) (EventStatus, error) {
	for _, candidate := range validEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event status %q", value)
}
