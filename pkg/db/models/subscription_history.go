package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
)

// SubscriptionHistory records an immutable lifecycle event tied to a
// subscription. Rows are append-only.
type SubscriptionHistory struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID                   `gorm:"column:subscription_id;type:uuid;not null;index"`
	EventType      enums.SubscriptionEventType `gorm:"column:event_type;type:subscription_event_type;not null"`
	FromStatus     *enums.SubscriptionStatus   `gorm:"column:from_status;type:subscription_status"`
	ToStatus       *enums.SubscriptionStatus   `gorm:"column:to_status;type:subscription_status"`
	EventStatus    enums.EventStatus           `gorm:"column:event_status;type:event_status;not null;default:'success'"`
	ActorUserID    *uuid.UUID                  `gorm:"column:actor_user_id;type:uuid"`
	Description    string                      `gorm:"column:description;not null"`
	DedupKey       *string                     `gorm:"column:dedup_key;uniqueIndex"`
	Metadata       json.RawMessage             `gorm:"column:metadata;type:jsonb"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

// TableName binds the model to the singular ledger table.
func (SubscriptionHistory) TableName() string {
	return "subscription_history"
}
