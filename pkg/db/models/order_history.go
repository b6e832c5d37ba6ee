package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/marcaromas/marcaromas-backend/pkg/enums"
)

// OrderHistory records an immutable lifecycle event tied to an order.
// Rows are append-only; there is no update or delete path.
type OrderHistory struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	EventType   enums.OrderEventType `gorm:"column:event_type;type:order_event_type;not null"`
	FromStatus  *enums.OrderStatus   `gorm:"column:from_status;type:order_status"`
	ToStatus    *enums.OrderStatus   `gorm:"column:to_status;type:order_status"`
	EventStatus enums.EventStatus    `gorm:"column:event_status;type:event_status;not null;default:'success'"`
	ActorUserID *uuid.UUID           `gorm:"column:actor_user_id;type:uuid"`
	Description string               `gorm:"column:description;not null"`
	DedupKey    *string              `gorm:"column:dedup_key;uniqueIndex"`
	Metadata    json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// TableName binds the model to the singular ledger table.
func (OrderHistory) TableName() string {
	return "order_history"
}
