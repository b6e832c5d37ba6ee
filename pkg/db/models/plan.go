package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
)

// Plan defines a subscription box offering.
type Plan struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string               `gorm:"column:name;not null"`
	Slug           string               `gorm:"column:slug;not null;uniqueIndex"`
	Description    *string              `gorm:"column:description"`
	Cadence        enums.BillingCadence `gorm:"column:cadence;type:billing_cadence;not null"`
	CandlesPerBox  int                  `gorm:"column:candles_per_box;not null;default:1"`
	PriceCents     int64                `gorm:"column:price_cents;not null"`
	ShippingCents  int64                `gorm:"column:shipping_cents;not null;default:0"`
	IsActive       bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
