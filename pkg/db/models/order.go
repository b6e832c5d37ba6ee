package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
	"github.com/marcaromas/marcaromas-backend/pkg/types"
)

// Order is the aggregate root for a customer purchase. Monetary fields are
// integer cents and must satisfy total = subtotal + shipping + tax - discount.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber         string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID              uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriptionID      *uuid.UUID          `gorm:"column:subscription_id;type:uuid;index"`
	Channel             enums.Channel       `gorm:"column:channel;type:channel;not null;default:'website'"`
	Status              enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus       enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'pix'"`
	GatewayPaymentID    *string             `gorm:"column:gateway_payment_id;uniqueIndex"`
	GatewayPreferenceID *string             `gorm:"column:gateway_preference_id"`
	SubtotalCents       int64               `gorm:"column:subtotal_cents;not null"`
	ShippingCents       int64               `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents            int64               `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents       int64               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents          int64               `gorm:"column:total_cents;not null"`
	ShippingAddress     types.Address       `gorm:"column:shipping_address;type:address_t;not null"`
	BillingAddress      types.Address       `gorm:"column:billing_address;type:address_t;not null"`
	CouponCode          *string             `gorm:"column:coupon_code"`
	Carrier             *string             `gorm:"column:carrier"`
	ShippingMethod      *string             `gorm:"column:shipping_method"`
	TrackingCode        *string             `gorm:"column:tracking_code"`
	LabelGeneratedAt    *time.Time          `gorm:"column:label_generated_at"`
	LabelURL            *string             `gorm:"column:label_url"`
	EstimatedDeliveryAt *time.Time          `gorm:"column:estimated_delivery_at"`
	CustomerNotes       *string             `gorm:"column:customer_notes"`
	Notes               *string             `gorm:"column:notes"`
	CancelReason        *string             `gorm:"column:cancel_reason"`
	RefundAmountCents   *int64              `gorm:"column:refund_amount_cents"`
	ConfirmedAt         *time.Time          `gorm:"column:confirmed_at"`
	PaidAt              *time.Time          `gorm:"column:paid_at"`
	ShippedAt           *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt         *time.Time          `gorm:"column:delivered_at"`
	CanceledAt          *time.Time          `gorm:"column:canceled_at"`
	RefundedAt          *time.Time          `gorm:"column:refunded_at"`
	Items               []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
