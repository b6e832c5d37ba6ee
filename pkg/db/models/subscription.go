package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	"github.com/marcaromas/marcaromas-backend/pkg/types"
)

// Subscription is the aggregate root for a recurring candle box. DeliveryCount
// and PauseCount only ever increase; a canceled subscription never leaves that
// state.
type Subscription struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID             uuid.UUID                `gorm:"column:plan_id;type:uuid;not null"`
	Status             enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	Cadence            enums.BillingCadence     `gorm:"column:cadence;type:billing_cadence;not null"`
	PriceCents         int64                    `gorm:"column:price_cents;not null"`
	ShippingCents      int64                    `gorm:"column:shipping_cents;not null;default:0"`
	PaymentMethod      enums.PaymentMethod      `gorm:"column:payment_method;type:payment_method;not null;default:'credit_card'"`
	CardToken          *string                  `gorm:"column:card_token"`
	SignupPaymentID    *string                  `gorm:"column:signup_payment_id"`
	ShippingAddress    types.Address            `gorm:"column:shipping_address;type:address_t;not null"`
	BillingAddress     types.Address            `gorm:"column:billing_address;type:address_t;not null"`
	NextBillingAt      *time.Time               `gorm:"column:next_billing_at;index"`
	LastPaymentAt      *time.Time               `gorm:"column:last_payment_at"`
	LastPaymentStatus  *enums.PaymentStatus     `gorm:"column:last_payment_status;type:payment_status"`
	LastDeliveryAt     *time.Time               `gorm:"column:last_delivery_at"`
	DeliveryCount      int                      `gorm:"column:delivery_count;not null;default:0"`
	PauseCount         int                      `gorm:"column:pause_count;not null;default:0"`
	FailedPaymentCount int                      `gorm:"column:failed_payment_count;not null;default:0"`
	PausedAt           *time.Time               `gorm:"column:paused_at"`
	CanceledAt         *time.Time               `gorm:"column:canceled_at"`
	CancelReason       *string                  `gorm:"column:cancel_reason"`
	Preferences        SubscriptionPreferences  `gorm:"column:preferences;type:jsonb"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// SubscriptionPreferences is the subscriber's box configuration. Zero values
// mean "no preference"; the fulfillment flow falls back to its defaults.
type SubscriptionPreferences struct {
	DeliveryDayOfMonth   int    `json:"delivery_day_of_month,omitempty"`
	NotificationsEnabled *bool  `json:"notifications_enabled,omitempty"`
	PreferredTimeWindow  string `json:"preferred_time_window,omitempty"`
}

// Value marshals the preferences into the jsonb column.
func (p SubscriptionPreferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan decodes the jsonb column.
func (p *SubscriptionPreferences) Scan(value interface{}) error {
	if value == nil {
		*p = SubscriptionPreferences{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("subscription preferences: unsupported source type %T", value)
	}
}
