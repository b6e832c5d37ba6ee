package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookDeadLetter captures gateway webhook deliveries that referenced an
// aggregate we could not resolve, kept for replay once the reference exists.
type WebhookDeadLetter struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Provider          string          `gorm:"column:provider;not null;default:'mercadopago'"`
	GatewayEventID    string          `gorm:"column:gateway_event_id;not null"`
	GatewayPaymentID  string          `gorm:"column:gateway_payment_id;not null;index"`
	ExternalReference *string         `gorm:"column:external_reference"`
	Topic             string          `gorm:"column:topic;not null"`
	Payload           json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	Reason            string          `gorm:"column:reason;not null"`
	AttemptCount      int             `gorm:"column:attempt_count;not null;default:0"`
	ResolvedAt        *time.Time      `gorm:"column:resolved_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}
